package inference

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

// stubOracle answers per cluster, keyed by the first claim text it is
// shown. Clusters listed in failFor return an error instead.
type stubOracle struct {
	proposals map[string]model.OracleProposal
	failFor   map[string]bool
}

func (o *stubOracle) Infer(ctx context.Context, claimTexts []string) (*model.OracleProposal, error) {
	key := claimTexts[0]
	if o.failFor[key] {
		return nil, fmt.Errorf("oracle unavailable")
	}
	p, ok := o.proposals[key]
	if !ok {
		return nil, fmt.Errorf("no stub proposal for %q", key)
	}
	return &p, nil
}

func testConfig() config.InferenceConfig {
	return config.InferenceConfig{
		MinSupportingClaims: 2,
		MaxHypotheses:       10,
		SimilarityThreshold: 0.8,
		Concurrency:         2,
	}
}

// clusterStore holds two candidate clusters: three claims about the
// transformer entity group spread over three documents, and two claims
// about the glue group.
func clusterStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()

	for i := 1; i <= 3; i++ {
		docID := fmt.Sprintf("d%d", i)
		require.NoError(t, s.AddNode(model.DocumentNode{
			ID: graph.DocumentID(docID), Title: "Paper " + docID, OrderingKey: int64(i),
		}))
		require.NoError(t, s.AddNode(model.EntityNode{
			ID: graph.EntityID(docID + "_e0"), Text: "Transformer", Type: "model",
			CanonicalGroupID: "transformer", DocID: docID,
		}))
		require.NoError(t, s.AddNode(model.ClaimNode{
			ID:   graph.ClaimID(docID + "_c0"),
			Text: fmt.Sprintf("transformer claim %d", i), ClaimType: "conclusive",
			Confidence: 0.9, DocID: docID,
		}))
		require.NoError(t, s.AddEdge(graph.ClaimID(docID+"_c0"), graph.EntityID(docID+"_e0"), model.EdgeMentions))
	}

	for i := 1; i <= 2; i++ {
		docID := fmt.Sprintf("d%d", i)
		require.NoError(t, s.AddNode(model.EntityNode{
			ID: graph.EntityID(docID + "_e1"), Text: "GLUE", Type: "dataset",
			CanonicalGroupID: "glue", DocID: docID,
		}))
		require.NoError(t, s.AddNode(model.ClaimNode{
			ID:   graph.ClaimID(docID + "_c1"),
			Text: fmt.Sprintf("glue claim %d", i), ClaimType: "comparative",
			Confidence: 0.7, DocID: docID,
		}))
		require.NoError(t, s.AddEdge(graph.ClaimID(docID+"_c1"), graph.EntityID(docID+"_e1"), model.EdgeMentions))
	}
	return s
}

func TestClaimClustersByEntityGroup(t *testing.T) {
	s := clusterStore(t)
	clusters := claimClusters(s, 2)
	require.Len(t, clusters, 2)
	assert.Equal(t, []string{"claim_d1_c0", "claim_d2_c0", "claim_d3_c0"}, clusters[0])
	assert.Equal(t, []string{"claim_d1_c1", "claim_d2_c1"}, clusters[1])
}

func TestClaimClustersFollowExtends(t *testing.T) {
	s := clusterStore(t)
	// EXTENDS bridges the two entity-group clusters into one component.
	require.NoError(t, s.AddEdge("claim_d1_c1", "claim_d1_c0", model.EdgeExtends))
	clusters := claimClusters(s, 2)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 5)
}

func TestClaimClustersMinSize(t *testing.T) {
	s := clusterStore(t)
	clusters := claimClusters(s, 3)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"claim_d1_c0", "claim_d2_c0", "claim_d3_c0"}, clusters[0])
}

func TestInferAndCommit(t *testing.T) {
	s := clusterStore(t)
	oracle := &stubOracle{proposals: map[string]model.OracleProposal{
		"transformer claim 1": {Text: "Attention is sufficient for sequence modeling", Confidence: 0.8, Rationale: "shared mechanism"},
		"glue claim 1":        {Text: "Benchmark scores track pretraining scale", Confidence: 0.6},
	}}
	inf := New(oracle, testConfig(), nil)

	inferred, err := inf.Infer(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, inferred, 2)

	first := inferred[0]
	assert.Equal(t, graph.InferredHypothesisID([]string{"claim_d1_c0", "claim_d2_c0", "claim_d3_c0"}), first.ID)
	assert.Equal(t, 3, first.ClusterSize)
	assert.Equal(t, 0.8, first.Confidence)
	assert.Empty(t, first.DuplicateOf)

	require.NoError(t, Commit(s, inferred))

	node, ok := s.Node(first.ID)
	require.True(t, ok)
	hyp := node.(model.HypothesisNode)
	assert.Equal(t, model.SourceInferred, hyp.Source)
	assert.Equal(t, []string{"claim_d1_c0", "claim_d2_c0", "claim_d3_c0"}, hyp.SupportingClaimIDs)
	assert.Equal(t, []string{"claim_d1_c0", "claim_d2_c0", "claim_d3_c0"},
		s.Neighbors(first.ID, model.EdgeSupports, graph.In))
}

func TestInferRerunIsIdempotent(t *testing.T) {
	s := clusterStore(t)
	oracle := &stubOracle{proposals: map[string]model.OracleProposal{
		"transformer claim 1": {Text: "Attention is sufficient for sequence modeling", Confidence: 0.8},
		"glue claim 1":        {Text: "Benchmark scores track pretraining scale", Confidence: 0.6},
	}}
	inf := New(oracle, testConfig(), nil)

	inferred, err := inf.Infer(context.Background(), s)
	require.NoError(t, err)
	require.NoError(t, Commit(s, inferred))
	nodes, edges := s.NodeCount(), s.EdgeCount()

	// The second run proposes identical texts, which dedup resolves to
	// the committed nodes; committing again changes nothing.
	again, err := inf.Infer(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, again, 2)
	for _, ih := range again {
		assert.NotEmpty(t, ih.DuplicateOf)
	}
	require.NoError(t, Commit(s, again))
	assert.Equal(t, nodes, s.NodeCount())
	assert.Equal(t, edges, s.EdgeCount())
}

func TestOracleFailureSkipsClusterOnly(t *testing.T) {
	s := clusterStore(t)
	oracle := &stubOracle{
		proposals: map[string]model.OracleProposal{
			"glue claim 1": {Text: "Benchmark scores track pretraining scale", Confidence: 0.6},
		},
		failFor: map[string]bool{"transformer claim 1": true},
	}
	inf := New(oracle, testConfig(), nil)

	inferred, err := inf.Infer(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, inferred, 1)
	assert.Equal(t, []string{"claim_d1_c1", "claim_d2_c1"}, inferred[0].ClaimIDs)
}

func TestInferCapKeepsLargestClusters(t *testing.T) {
	s := clusterStore(t)
	oracle := &stubOracle{proposals: map[string]model.OracleProposal{
		"transformer claim 1": {Text: "Attention is sufficient for sequence modeling", Confidence: 0.5},
		"glue claim 1":        {Text: "Benchmark scores track pretraining scale", Confidence: 0.9},
	}}
	cfg := testConfig()
	cfg.MaxHypotheses = 1
	inf := New(oracle, cfg, nil)

	// Cluster size outranks confidence.
	inferred, err := inf.Infer(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, inferred, 1)
	assert.Equal(t, 3, inferred[0].ClusterSize)
}

func TestCapTieBreaksDeterministically(t *testing.T) {
	inf := New(nil, testConfig(), nil)
	inf.MaxHypotheses = 2

	in := []InferredHypothesis{
		{ID: "hyp_a", Text: "a", Confidence: 0.5, ClaimIDs: []string{"claim_a"}, ClusterSize: 2},
		{ID: "hyp_b", Text: "b", Confidence: 0.9, ClaimIDs: []string{"claim_b"}, ClusterSize: 2},
		{ID: "hyp_c", Text: "c", Confidence: 0.5, ClaimIDs: []string{"claim_c"}, ClusterSize: 2},
		{Text: "dup", DuplicateOf: "hyp_x", ClaimIDs: []string{"claim_d"}, ClusterSize: 2},
	}
	out := inf.cap(in)

	// Highest confidence wins at equal size, then the smaller first
	// claim id; duplicates survive the cap untouched.
	require.Len(t, out, 3)
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []string{"hyp_a", "hyp_b", ""}, ids)
	assert.Equal(t, "hyp_x", out[2].DuplicateOf)
}
