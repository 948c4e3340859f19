package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Node ids are the extraction record id behind a kind prefix, so ids stay
// content-derived end to end and rebuilding from identical input yields an
// identical graph.

func DocumentID(docID string) string   { return "doc_" + docID }
func EntityID(entityID string) string  { return "ent_" + entityID }
func ClaimID(claimID string) string    { return "claim_" + claimID }
func HypothesisID(hypID string) string { return "hyp_" + hypID }

// InferredHypothesisID derives a stable id for a hypothesis inferred from
// a claim cluster. The same cluster always produces the same id, which
// makes repeated inference runs idempotent.
func InferredHypothesisID(claimNodeIDs []string) string {
	sorted := make([]string, len(claimNodeIDs))
	copy(sorted, claimNodeIDs)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return "hyp_inferred_" + hex.EncodeToString(sum[:])[:12]
}
