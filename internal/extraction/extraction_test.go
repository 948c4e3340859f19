package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core/model"
)

func testDoc() model.DocumentRecord {
	return model.DocumentRecord{
		DocID: "a1b2c3", Title: "Attention Is All You Need", OrderingKey: 1,
		Sections: []model.SectionRecord{{
			Section: "abstract",
			Sentences: []string{
				"The Transformer relies entirely on attention.",
				"It outperforms recurrent baselines on WMT.",
			},
		}},
	}
}

func TestExtractEntities(t *testing.T) {
	mockJSON := `{
		"entities": [
			{"text": "Transformer", "type": "model", "sentence_idx": 0},
			{"text": "WMT", "type": "dataset", "sentence_idx": 1}
		]
	}`
	extractor := New(&MockLLMClient{Response: mockJSON}, config.ExtractionPrompts{}, nil)

	entities, err := extractor.ExtractEntities(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "a1b2c3_e0", entities[0].EntityID)
	assert.Equal(t, "Transformer", entities[0].Text)
	assert.Equal(t, "The Transformer relies entirely on attention.", entities[0].Context)
	assert.Equal(t, "a1b2c3_e1", entities[1].EntityID)
	assert.Equal(t, "dataset", entities[1].Type)
}

func TestExtractEntitiesEmptyDocument(t *testing.T) {
	extractor := New(&MockLLMClient{Err: errors.New("should not be called")}, config.ExtractionPrompts{}, nil)
	entities, err := extractor.ExtractEntities(context.Background(), model.DocumentRecord{DocID: "empty"})
	assert.NoError(t, err)
	assert.Empty(t, entities)
}

func TestExtractClaimsResolvesEntityNames(t *testing.T) {
	mockJSON := `{
		"claims": [
			{
				"text": "The Transformer outperforms recurrent baselines",
				"type": "comparative",
				"entities": ["transformer", "LSTM"],
				"sentence_idx": 1,
				"confidence": 0.9
			}
		]
	}`
	extractor := New(&MockLLMClient{Response: mockJSON}, config.ExtractionPrompts{}, nil)

	entities := []model.EntityRecord{
		{EntityID: "a1b2c3_e0", DocID: "a1b2c3", Text: "Transformer", Type: "model"},
	}
	claims, err := extractor.ExtractClaims(context.Background(), testDoc(), entities)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "a1b2c3_c0", claims[0].ClaimID)
	// "transformer" matches case-insensitively; "LSTM" was never
	// extracted as an entity and is dropped.
	assert.Equal(t, []string{"a1b2c3_e0"}, claims[0].MentionedEntityIDs)
	assert.Equal(t, 0.9, claims[0].Confidence)
}

func TestExtractClaimsDefaults(t *testing.T) {
	mockJSON := `{
		"claims": [
			{"text": "Something holds", "entities": [], "sentence_idx": 0, "confidence": 7.5}
		]
	}`
	extractor := New(&MockLLMClient{Response: mockJSON}, config.ExtractionPrompts{}, nil)

	claims, err := extractor.ExtractClaims(context.Background(), testDoc(), nil)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "other", claims[0].ClaimType)
	assert.Equal(t, 0.5, claims[0].Confidence)
}

func TestDetectHypotheses(t *testing.T) {
	mockJSON := `{
		"hypotheses": [
			{
				"text": "Attention is sufficient for sequence transduction",
				"confidence": 0.7,
				"supporting_claim_idxs": [0, 1, 99]
			}
		]
	}`
	extractor := New(&MockLLMClient{Response: mockJSON}, config.ExtractionPrompts{}, nil)

	claims := []model.ClaimRecord{
		{ClaimID: "a1b2c3_c0", DocID: "a1b2c3", Text: "claim zero"},
		{ClaimID: "a1b2c3_c1", DocID: "a1b2c3", Text: "claim one"},
	}
	hyps, err := extractor.DetectHypotheses(context.Background(), testDoc(), claims)
	require.NoError(t, err)
	require.Len(t, hyps, 1)
	assert.Equal(t, "a1b2c3_h0", hyps[0].HypothesisID)
	// Index 99 is out of range and silently dropped.
	assert.Equal(t, []string{"a1b2c3_c0", "a1b2c3_c1"}, hyps[0].SupportingClaimIDs)
}

func TestExtractionPropagatesLLMError(t *testing.T) {
	extractor := New(&MockLLMClient{Err: errors.New("provider down")}, config.ExtractionPrompts{}, nil)
	_, err := extractor.ExtractEntities(context.Background(), testDoc())
	assert.Error(t, err)
}

func TestDeriveClaimRelations(t *testing.T) {
	claims := []model.ClaimRecord{
		{ClaimID: "d1_c0", DocID: "d1", ClaimType: "comparative", MentionedEntityIDs: []string{"e0", "e1"}},
		{ClaimID: "d1_c1", DocID: "d1", ClaimType: "comparative", MentionedEntityIDs: []string{"e0", "e1", "e2"}},
		{ClaimID: "d1_c2", DocID: "d1", ClaimType: "causal", MentionedEntityIDs: []string{"e0", "e1"}},
		{ClaimID: "d2_c0", DocID: "d2", ClaimType: "comparative", MentionedEntityIDs: []string{"e0", "e1"}},
	}
	out := DeriveClaimRelations(claims)

	// Same doc, same type, two shared entities: the later claim extends
	// the earlier one.
	require.Len(t, out[1].Relations, 1)
	assert.Equal(t, model.RelationDecl{TargetID: "d1_c0", Kind: model.EdgeExtends}, out[1].Relations[0])

	// Different type and different document stay unrelated.
	assert.Empty(t, out[2].Relations)
	assert.Empty(t, out[3].Relations)
	assert.Empty(t, out[0].Relations)
}
