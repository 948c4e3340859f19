package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

// queryStore models three papers tracking one entity over time. Ordering
// keys are deliberately out of ingestion order (1, 3, 2) so evolution
// sorting is actually exercised.
func queryStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()

	require.NoError(t, s.AddNode(model.DocumentNode{ID: "doc_d1", Title: "Paper One", OrderingKey: 1}))
	require.NoError(t, s.AddNode(model.DocumentNode{ID: "doc_d2", Title: "Paper Two", OrderingKey: 3}))
	require.NoError(t, s.AddNode(model.DocumentNode{ID: "doc_d3", Title: "Paper Three", OrderingKey: 2}))

	for _, docID := range []string{"d1", "d2", "d3"} {
		require.NoError(t, s.AddNode(model.EntityNode{
			ID: "ent_" + docID + "_e0", Text: "Transformer", Type: "model",
			CanonicalGroupID: "transformer", DocID: docID,
		}))
	}

	require.NoError(t, s.AddNode(model.ClaimNode{
		ID: "claim_d1_c0", Text: "Attention replaces recurrence", ClaimType: "conclusive",
		Confidence: 0.9, DocID: "d1",
	}))
	require.NoError(t, s.AddNode(model.ClaimNode{
		ID: "claim_d2_c0", Text: "Attention scales to long contexts", ClaimType: "conclusive",
		Confidence: 0.8, DocID: "d2",
	}))
	require.NoError(t, s.AddNode(model.ClaimNode{
		ID: "claim_d3_c0", Text: "Attention alone is not enough", ClaimType: "comparative",
		Confidence: 0.7, DocID: "d3",
	}))
	for _, docID := range []string{"d1", "d2", "d3"} {
		require.NoError(t, s.AddEdge("claim_"+docID+"_c0", "ent_"+docID+"_e0", model.EdgeMentions))
	}

	require.NoError(t, s.AddNode(model.HypothesisNode{
		ID: "hyp_d1_h0", Text: "Attention is sufficient for sequence modeling",
		Confidence: 0.7, Source: model.SourceExplicit, DocID: "d1",
	}))
	require.NoError(t, s.AddNode(model.HypothesisNode{
		ID: "hyp_d2_h0", Text: "Sparse attention preserves quality",
		Confidence: 0.6, Source: model.SourceExplicit, DocID: "d2",
	}))

	require.NoError(t, s.AddSupport("claim_d1_c0", "hyp_d1_h0"))
	require.NoError(t, s.AddSupport("claim_d2_c0", "hyp_d1_h0"))
	require.NoError(t, s.AddEdge("claim_d3_c0", "hyp_d1_h0", model.EdgeContradicts))
	require.NoError(t, s.AddEdge("claim_d3_c0", "claim_d1_c0", model.EdgeContradicts))
	require.NoError(t, s.AddEdge("claim_d2_c0", "claim_d1_c0", model.EdgeExtends))
	return s
}

func TestHypothesisSupportByText(t *testing.T) {
	e := New(queryStore(t))

	result, err := e.HypothesisSupport("sufficient for sequence")
	require.NoError(t, err)
	assert.Equal(t, "hyp_d1_h0", result.Hypothesis.ID)

	require.Len(t, result.Supporting, 2)
	assert.Equal(t, "claim_d1_c0", result.Supporting[0].ID)
	assert.Equal(t, "claim_d2_c0", result.Supporting[1].ID)

	require.Len(t, result.Contradicting, 1)
	assert.Equal(t, "claim_d3_c0", result.Contradicting[0].Claim.ID)
	assert.Equal(t, "incoming", result.Contradicting[0].Direction)

	require.Len(t, result.Documents, 3)
	verdicts := map[string]DocumentVerdict{}
	for _, v := range result.Documents {
		verdicts[v.DocID] = v
	}
	assert.True(t, verdicts["d1"].Supports)
	assert.False(t, verdicts["d1"].Contradicts)
	assert.True(t, verdicts["d3"].Contradicts)
	assert.Equal(t, "Paper Three", verdicts["d3"].Title)
}

func TestHypothesisSupportRecordsContradictionDirection(t *testing.T) {
	s := queryStore(t)
	require.NoError(t, s.AddNode(model.ClaimNode{
		ID: "claim_d3_c1", Text: "Recurrence still matters", ClaimType: "conclusive",
		Confidence: 0.6, DocID: "d3",
	}))
	// The edge may only run claim to hypothesis; the hypothesis-side
	// declaration is rejected and never reaches the query results.
	var verr *graph.ValidationError
	require.ErrorAs(t, s.AddEdge("hyp_d1_h0", "claim_d3_c1", model.EdgeContradicts), &verr)
	require.NoError(t, s.AddEdge("claim_d3_c1", "hyp_d1_h0", model.EdgeContradicts))

	result, err := New(s).HypothesisSupport("hyp_d1_h0")
	require.NoError(t, err)
	require.Len(t, result.Contradicting, 2)
	assert.Equal(t, "incoming", result.Contradicting[0].Direction)
	assert.Equal(t, "claim_d3_c0", result.Contradicting[0].Claim.ID)
	assert.Equal(t, "incoming", result.Contradicting[1].Direction)
	assert.Equal(t, "claim_d3_c1", result.Contradicting[1].Claim.ID)
}

func TestHypothesisResolutionPolicy(t *testing.T) {
	s := queryStore(t)
	e := New(s)

	// Raw node id and bare record id both resolve.
	byNodeID, err := e.HypothesisSupport("hyp_d1_h0")
	require.NoError(t, err)
	byRecordID, err := e.HypothesisSupport("d1_h0")
	require.NoError(t, err)
	assert.Equal(t, byNodeID.Hypothesis.ID, byRecordID.Hypothesis.ID)

	// Text matching both hypotheses picks the higher confidence one.
	result, err := e.HypothesisSupport("attention")
	require.NoError(t, err)
	assert.Equal(t, "hyp_d1_h0", result.Hypothesis.ID)

	_, err = e.HypothesisSupport("quantum gravity")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, model.KindHypothesis, nf.Kind)
}

func TestEntityEvolutionOrdersByDocumentKey(t *testing.T) {
	e := New(queryStore(t))

	result, err := e.EntityEvolution("Transformer")
	require.NoError(t, err)
	assert.Equal(t, "transformer", result.Entity.CanonicalGroup)
	assert.Len(t, result.Entity.EntityIDs, 3)

	// Ordering keys 1, 2, 3 even though d2 was ingested before d3.
	require.Len(t, result.EvolutionPath, 3)
	assert.Equal(t, "claim_d1_c0", result.EvolutionPath[0].Claim.ID)
	assert.Equal(t, "claim_d3_c0", result.EvolutionPath[1].Claim.ID)
	assert.Equal(t, "claim_d2_c0", result.EvolutionPath[2].Claim.ID)
	assert.Equal(t, int64(2), result.EvolutionPath[1].OrderingKey)

	require.Len(t, result.Hypotheses, 1)
	assert.Equal(t, "hyp_d1_h0", result.Hypotheses[0].ID)
}

func TestEntityEvolutionNotFound(t *testing.T) {
	e := New(queryStore(t))
	_, err := e.EntityEvolution("Nonexistium")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, model.KindEntity, nf.Kind)
}

func TestUnvalidatedHypotheses(t *testing.T) {
	e := New(queryStore(t))

	// hyp_d2_h0 has no support at all; hyp_d1_h0 has two supporters but
	// one contradiction.
	out := e.UnvalidatedHypotheses(2, 0)
	require.Len(t, out, 2)
	assert.Equal(t, "hyp_d2_h0", out[0].Hypothesis.ID)
	assert.Equal(t, "low_support", out[0].Reason)
	assert.Equal(t, 0, out[0].SupportingCount)
	assert.Equal(t, "hyp_d1_h0", out[1].Hypothesis.ID)
	assert.Equal(t, "high_contradictions", out[1].Reason)
	assert.Equal(t, 1, out[1].ContradictingCount)

	// Relaxing the contradiction bound clears the supported one.
	out = e.UnvalidatedHypotheses(2, 1)
	require.Len(t, out, 1)
	assert.Equal(t, "hyp_d2_h0", out[0].Hypothesis.ID)
}

func TestClaimRelationships(t *testing.T) {
	e := New(queryStore(t))

	result, err := e.ClaimRelationships("d1_c0")
	require.NoError(t, err)
	assert.Equal(t, "claim_d1_c0", result.Claim.ID)

	require.Len(t, result.Supports.Outgoing, 1)
	assert.Equal(t, "hyp_d1_h0", result.Supports.Outgoing[0].ID)
	assert.Equal(t, model.KindHypothesis, result.Supports.Outgoing[0].Kind)

	require.Len(t, result.Contradicts.Incoming, 1)
	assert.Equal(t, "claim_d3_c0", result.Contradicts.Incoming[0].ID)
	assert.Empty(t, result.Contradicts.Outgoing)

	require.Len(t, result.Extends.Incoming, 1)
	assert.Equal(t, "claim_d2_c0", result.Extends.Incoming[0].ID)
}

func TestClaimResolutionByText(t *testing.T) {
	e := New(queryStore(t))

	result, err := e.ClaimRelationships("replaces recurrence")
	require.NoError(t, err)
	assert.Equal(t, "claim_d1_c0", result.Claim.ID)

	_, err = e.ClaimRelationships("no such claim text")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
