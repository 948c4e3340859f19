package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core"
	"github.com/agenthands/cobalt/internal/core/model"
)

type MockLLM struct {
	Response      string
	ResponseQueue []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

// TestPipelineEndToEnd walks the whole flow: ingest two papers, extract,
// build the graph with cross-document entity linking, infer a hypothesis
// from the shared-entity claim cluster, then query it.
func TestPipelineEndToEnd(t *testing.T) {
	entityJSON := `{"entities": [{"text": "Transformer", "type": "model", "sentence_idx": 0}]}`
	claimsDoc1 := `{"claims": [{"text": "Attention replaces recurrence", "type": "conclusive",
		"entities": ["Transformer"], "sentence_idx": 0, "confidence": 0.9}]}`
	claimsDoc2 := `{"claims": [{"text": "Bidirectional pretraining improves GLUE", "type": "conclusive",
		"entities": ["Transformer"], "sentence_idx": 0, "confidence": 0.8}]}`
	noHypotheses := `{"hypotheses": []}`
	oracleJSON := `{"hypothesis": "Attention is sufficient for sequence modeling",
		"confidence": 0.8, "reasoning": "both papers build on the same mechanism"}`

	mockLLM := &MockLLM{ResponseQueue: []string{
		entityJSON, claimsDoc1, noHypotheses, // paper 1
		entityJSON, claimsDoc2, noHypotheses, // paper 2
		oracleJSON, // one claim cluster
	}}

	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.Inference.Concurrency = 1
	cfg.Inference.RequestsPerSecond = 1000

	reasoner, err := core.NewReasoner(mockLLM, nil, cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	doc1, err := reasoner.IngestDocument("attention.md", []byte(
		"# Attention Is All You Need\n\nThe Transformer relies entirely on attention. It removes recurrence.\n"), 1)
	require.NoError(t, err)
	doc2, err := reasoner.IngestDocument("bert.md", []byte(
		"# BERT\n\nThe Transformer enables bidirectional pretraining. It improves GLUE.\n"), 2)
	require.NoError(t, err)
	require.NotEqual(t, doc1.DocID, doc2.DocID)

	listed, err := reasoner.ListDocuments()
	require.NoError(t, err)
	require.Len(t, listed, 2)
	titles := []string{listed[0].Title, listed[1].Title}
	assert.ElementsMatch(t, []string{"Attention Is All You Need", "BERT"}, titles)

	require.NoError(t, reasoner.ProcessDocument(ctx, doc1.DocID))
	require.NoError(t, reasoner.ProcessDocument(ctx, doc2.DocID))

	stats, err := reasoner.BuildGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NodeCounts[model.KindDocument])
	assert.Equal(t, 2, stats.NodeCounts[model.KindEntity])
	assert.Equal(t, 2, stats.NodeCounts[model.KindClaim])
	// Both entity instances landed in one canonical group.
	assert.Equal(t, 2, stats.EdgeCounts[model.EdgeLinksTo])

	inferred, err := reasoner.InferHypotheses(ctx)
	require.NoError(t, err)
	require.Len(t, inferred, 1)
	assert.Equal(t, 2, inferred[0].ClusterSize)
	assert.Empty(t, inferred[0].DuplicateOf)

	support, err := reasoner.HypothesisSupport("Attention is sufficient")
	require.NoError(t, err)
	assert.Equal(t, model.SourceInferred, support.Hypothesis.Source)
	assert.Len(t, support.Supporting, 2)
	assert.Empty(t, support.Contradicting)
	require.Len(t, support.Documents, 2)

	evolution, err := reasoner.EntityEvolution("Transformer")
	require.NoError(t, err)
	require.Len(t, evolution.EvolutionPath, 2)
	// Ordering keys put the attention paper first.
	assert.Equal(t, doc1.DocID, evolution.EvolutionPath[0].Claim.DocID)
	assert.Equal(t, doc2.DocID, evolution.EvolutionPath[1].Claim.DocID)
	require.Len(t, evolution.Hypotheses, 1)

	// The inferred hypothesis has two supporters, so it only shows up
	// when the bar is raised.
	assert.Empty(t, reasoner.UnvalidatedHypotheses(2, 0))
	flagged := reasoner.UnvalidatedHypotheses(3, 0)
	require.Len(t, flagged, 1)
	assert.Equal(t, "low_support", flagged[0].Reason)

	final := reasoner.Stats()
	assert.Equal(t, 7, final.Nodes)
	assert.Equal(t, 1, final.NodeCounts[model.KindHypothesis])
}

// TestConcurrentInferenceRunsSerialize fires several inference requests
// at once against one graph. Runs take their turn, later ones see the
// first run's hypothesis as a duplicate, and the graph ends up with a
// single hypothesis node either way.
func TestConcurrentInferenceRunsSerialize(t *testing.T) {
	entityJSON := `{"entities": [{"text": "Transformer", "type": "model", "sentence_idx": 0}]}`
	claimsDoc1 := `{"claims": [{"text": "Attention replaces recurrence", "type": "conclusive",
		"entities": ["Transformer"], "sentence_idx": 0, "confidence": 0.9}]}`
	claimsDoc2 := `{"claims": [{"text": "Bidirectional pretraining improves GLUE", "type": "conclusive",
		"entities": ["Transformer"], "sentence_idx": 0, "confidence": 0.8}]}`
	noHypotheses := `{"hypotheses": []}`

	mockLLM := &MockLLM{
		ResponseQueue: []string{
			entityJSON, claimsDoc1, noHypotheses,
			entityJSON, claimsDoc2, noHypotheses,
		},
		// Every oracle call after the queue drains gets the same answer.
		Response: `{"hypothesis": "Attention is sufficient for sequence modeling",
			"confidence": 0.8, "reasoning": "both papers build on the same mechanism"}`,
	}

	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.Inference.Concurrency = 1
	cfg.Inference.RequestsPerSecond = 1000

	reasoner, err := core.NewReasoner(mockLLM, nil, cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	doc1, err := reasoner.IngestDocument("attention.md", []byte(
		"# Attention Is All You Need\n\nThe Transformer relies entirely on attention. It removes recurrence.\n"), 1)
	require.NoError(t, err)
	doc2, err := reasoner.IngestDocument("bert.md", []byte(
		"# BERT\n\nThe Transformer enables bidirectional pretraining. It improves GLUE.\n"), 2)
	require.NoError(t, err)
	require.NoError(t, reasoner.ProcessDocument(ctx, doc1.DocID))
	require.NoError(t, reasoner.ProcessDocument(ctx, doc2.DocID))
	_, err = reasoner.BuildGraph(ctx)
	require.NoError(t, err)

	const runs = 4
	errs := make([]error, runs)
	counts := make([]int, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inferred, err := reasoner.InferHypotheses(ctx)
			errs[i] = err
			counts[i] = len(inferred)
		}()
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, counts[i])
	}

	final := reasoner.Stats()
	assert.Equal(t, 1, final.NodeCounts[model.KindHypothesis])
	assert.Equal(t, 7, final.Nodes)
}

// TestPipelineRebuildIsDeterministic rebuilds from the same stored
// records and expects an identical graph.
func TestPipelineRebuildIsDeterministic(t *testing.T) {
	entityJSON := `{"entities": [{"text": "ResNet", "type": "model", "sentence_idx": 0}]}`
	claimsJSON := `{"claims": [{"text": "Residual connections ease optimization", "type": "causal",
		"entities": ["ResNet"], "sentence_idx": 0, "confidence": 0.9}]}`
	noHypotheses := `{"hypotheses": []}`

	mockLLM := &MockLLM{ResponseQueue: []string{entityJSON, claimsJSON, noHypotheses}}

	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()

	reasoner, err := core.NewReasoner(mockLLM, nil, cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	doc, err := reasoner.IngestDocument("resnet.md", []byte("# ResNet\n\nResidual connections ease optimization.\n"), 1)
	require.NoError(t, err)
	require.NoError(t, reasoner.ProcessDocument(ctx, doc.DocID))

	first, err := reasoner.BuildGraph(ctx)
	require.NoError(t, err)
	second, err := reasoner.BuildGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
