package model

// NodeKind discriminates the payload carried by a graph node.
type NodeKind string

const (
	KindDocument   NodeKind = "document"
	KindEntity     NodeKind = "entity"
	KindClaim      NodeKind = "claim"
	KindHypothesis NodeKind = "hypothesis"
)

// HypothesisSource records whether a hypothesis was stated in a document
// or inferred from a cluster of related claims.
type HypothesisSource string

const (
	SourceExplicit HypothesisSource = "explicit"
	SourceInferred HypothesisSource = "inferred"
)

// Node is the closed union of graph node payloads. Exactly four types
// implement it: DocumentNode, EntityNode, ClaimNode and HypothesisNode.
type Node interface {
	NodeID() string
	NodeKind() NodeKind
}

type DocumentNode struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	// OrderingKey is a stable sortable value (ingestion sequence or a
	// yyyymmdd-style publication date) used by evolution queries.
	OrderingKey int64 `json:"ordering_key"`
}

func (n DocumentNode) NodeID() string     { return n.ID }
func (n DocumentNode) NodeKind() NodeKind { return KindDocument }

type EntityNode struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
	// CanonicalGroupID identifies the cross-document cluster this entity
	// instance belongs to. Two entities with the same group denote the
	// same real-world concept.
	CanonicalGroupID string `json:"canonical_group_id"`
	DocID            string `json:"doc_id"`
}

func (n EntityNode) NodeID() string     { return n.ID }
func (n EntityNode) NodeKind() NodeKind { return KindEntity }

type ClaimNode struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	ClaimType          string   `json:"claim_type"`
	Confidence         float64  `json:"confidence"`
	DocID              string   `json:"doc_id"`
	MentionedEntityIDs []string `json:"mentioned_entity_ids,omitempty"`
}

func (n ClaimNode) NodeID() string     { return n.ID }
func (n ClaimNode) NodeKind() NodeKind { return KindClaim }

type HypothesisNode struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	Confidence float64          `json:"confidence"`
	Source     HypothesisSource `json:"source"`
	DocID      string           `json:"doc_id,omitempty"`
	// SupportingClaimIDs mirrors the set of claims with a SUPPORTS edge
	// into this node. The store keeps both in lockstep.
	SupportingClaimIDs []string `json:"supporting_claim_ids,omitempty"`
	Rationale          string   `json:"rationale,omitempty"`
}

func (n HypothesisNode) NodeID() string     { return n.ID }
func (n HypothesisNode) NodeKind() NodeKind { return KindHypothesis }
