package model

// JSON shapes returned by the LLM collaborators. Field tags match the
// formats requested in the prompt templates.

// OracleProposal is the inference oracle's answer for one claim cluster.
type OracleProposal struct {
	Text       string  `json:"hypothesis"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"reasoning"`
}

type ExtractedEntity struct {
	Text        string `json:"text"`
	Type        string `json:"type"`
	SentenceIdx int    `json:"sentence_idx"`
}

type ExtractedEntities struct {
	Entities []ExtractedEntity `json:"entities"`
}

type ExtractedClaim struct {
	Text        string   `json:"text"`
	Type        string   `json:"type"`
	Entities    []string `json:"entities"`
	SentenceIdx int      `json:"sentence_idx"`
	Confidence  float64  `json:"confidence"`
}

type ExtractedClaims struct {
	Claims []ExtractedClaim `json:"claims"`
}

type DetectedHypothesis struct {
	Text                string  `json:"text"`
	Confidence          float64 `json:"confidence"`
	SupportingClaimIdxs []int   `json:"supporting_claim_idxs"`
}

type DetectedHypotheses struct {
	Hypotheses []DetectedHypothesis `json:"hypotheses"`
}
