package model

// Builder input records. One record per extracted item, produced by the
// ingestion, extraction and linking collaborators upstream of the graph.

type SectionRecord struct {
	Section   string   `json:"section"`
	RawText   string   `json:"raw_text"`
	Sentences []string `json:"sentences,omitempty"`
}

type DocumentRecord struct {
	DocID       string          `json:"doc_id"`
	Title       string          `json:"title"`
	Authors     []string        `json:"authors,omitempty"`
	OrderingKey int64           `json:"ordering_key"`
	Sections    []SectionRecord `json:"sections,omitempty"`
}

type EntityRecord struct {
	EntityID string `json:"entity_id"`
	DocID    string `json:"doc_id"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	Context  string `json:"context,omitempty"`
}

// RelationDecl is an outgoing relation declared on a claim by extraction.
// TargetID names another extraction record (claim, hypothesis or entity).
type RelationDecl struct {
	TargetID string   `json:"target_id"`
	Kind     EdgeKind `json:"kind"`
}

type ClaimRecord struct {
	ClaimID            string         `json:"claim_id"`
	DocID              string         `json:"doc_id"`
	Text               string         `json:"text"`
	ClaimType          string         `json:"claim_type"`
	Confidence         float64        `json:"confidence"`
	MentionedEntityIDs []string       `json:"mentioned_entity_ids,omitempty"`
	Relations          []RelationDecl `json:"relations,omitempty"`
}

type HypothesisRecord struct {
	HypothesisID       string   `json:"hypothesis_id"`
	DocID              string   `json:"doc_id"`
	Text               string   `json:"text"`
	Confidence         float64  `json:"confidence"`
	SupportingClaimIDs []string `json:"supporting_claim_ids,omitempty"`
}

// EntityLinks maps a canonical entity name to the entity record ids the
// linker judged to denote the same real-world concept.
type EntityLinks map[string][]string
