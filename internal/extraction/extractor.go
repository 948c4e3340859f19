// Package extraction turns parsed documents into entity, claim and
// hypothesis records using an LLM. Record ids are derived from the
// document id plus a local sequence, so identical input always produces
// identical ids.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core/common"
	"github.com/agenthands/cobalt/internal/core/model"
	"github.com/agenthands/cobalt/internal/llm"
)

const defaultEntityPrompt = `Extract the named entities (methods, models, datasets, metrics, concepts) from the following sentences.

Sentences:
%s

Return a JSON object with an "entities" array. Each entity has:
- "text": the entity surface form
- "type": one of ["method", "model", "dataset", "metric", "concept", "other"]
- "sentence_idx": index of the sentence it appears in (0-based)

Return only a valid JSON object.`

const defaultClaimPrompt = `Identify claims in the following sentences. A claim is a statement that makes a conclusion or assertion, compares methods, states a causal relationship, or presents experimental results.

Sentences:
%s

Return a JSON object with a "claims" array. Each claim has:
- "text": the claim text
- "type": one of ["comparative", "causal", "conclusive", "other"]
- "entities": list of entity names mentioned
- "sentence_idx": index in the batch (0-based)
- "confidence": confidence score (0.0-1.0)

Return only a valid JSON object.`

const defaultHypothesisPrompt = `Identify explicit hypotheses stated in the following claims. A hypothesis is a testable prediction or assumption, more general than a single observation.

Claims:
%s

Return a JSON object with a "hypotheses" array. Each hypothesis has:
- "text": the hypothesis text
- "confidence": confidence score (0.0-1.0)
- "supporting_claim_idxs": indices of the claims that support it (0-based)

Return only a valid JSON object.`

type Extractor struct {
	llm     llm.LLMClient
	prompts config.ExtractionPrompts
	log     *zap.Logger
}

func New(client llm.LLMClient, prompts config.ExtractionPrompts, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	if prompts.Entities == "" {
		prompts.Entities = defaultEntityPrompt
	}
	if prompts.Claims == "" {
		prompts.Claims = defaultClaimPrompt
	}
	if prompts.Hypotheses == "" {
		prompts.Hypotheses = defaultHypothesisPrompt
	}
	return &Extractor{llm: client, prompts: prompts, log: log}
}

// ExtractEntities extracts entity records from every sentence of a
// document.
func (e *Extractor) ExtractEntities(ctx context.Context, doc model.DocumentRecord) ([]model.EntityRecord, error) {
	sentences := docSentences(doc)
	if len(sentences) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(e.prompts.Entities, numbered(sentences))
	response, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("entity extraction failed for %s: %w", doc.DocID, err)
	}
	result, err := common.ParseJSON[model.ExtractedEntities](response)
	if err != nil {
		return nil, fmt.Errorf("entity extraction failed for %s: %w", doc.DocID, err)
	}

	records := make([]model.EntityRecord, 0, len(result.Entities))
	for i, ent := range result.Entities {
		context := ""
		if ent.SentenceIdx >= 0 && ent.SentenceIdx < len(sentences) {
			context = sentences[ent.SentenceIdx]
		}
		records = append(records, model.EntityRecord{
			EntityID: fmt.Sprintf("%s_e%d", doc.DocID, i),
			DocID:    doc.DocID,
			Text:     ent.Text,
			Type:     ent.Type,
			Context:  context,
		})
	}
	return records, nil
}

// ExtractClaims extracts claim records. Entity names returned by the LLM
// are resolved against the document's entity records by lower-cased
// text; unmatched names are dropped with a log line.
func (e *Extractor) ExtractClaims(ctx context.Context, doc model.DocumentRecord, entities []model.EntityRecord) ([]model.ClaimRecord, error) {
	sentences := docSentences(doc)
	if len(sentences) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(e.prompts.Claims, numbered(sentences))
	response, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("claim extraction failed for %s: %w", doc.DocID, err)
	}
	result, err := common.ParseJSON[model.ExtractedClaims](response)
	if err != nil {
		return nil, fmt.Errorf("claim extraction failed for %s: %w", doc.DocID, err)
	}

	lookup := make(map[string]string, len(entities))
	for _, ent := range entities {
		lookup[strings.ToLower(strings.TrimSpace(ent.Text))] = ent.EntityID
	}

	records := make([]model.ClaimRecord, 0, len(result.Claims))
	for i, claim := range result.Claims {
		var entityIDs []string
		for _, name := range claim.Entities {
			if id, ok := lookup[strings.ToLower(strings.TrimSpace(name))]; ok {
				entityIDs = append(entityIDs, id)
			} else {
				e.log.Debug("claim names unknown entity",
					zap.String("doc_id", doc.DocID),
					zap.String("entity", name))
			}
		}
		confidence := claim.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.5
		}
		claimType := claim.Type
		if claimType == "" {
			claimType = "other"
		}
		records = append(records, model.ClaimRecord{
			ClaimID:            fmt.Sprintf("%s_c%d", doc.DocID, i),
			DocID:              doc.DocID,
			Text:               claim.Text,
			ClaimType:          claimType,
			Confidence:         confidence,
			MentionedEntityIDs: entityIDs,
		})
	}
	return records, nil
}

// DetectHypotheses finds explicit hypotheses among a document's claims.
func (e *Extractor) DetectHypotheses(ctx context.Context, doc model.DocumentRecord, claims []model.ClaimRecord) ([]model.HypothesisRecord, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	texts := make([]string, 0, len(claims))
	for _, c := range claims {
		texts = append(texts, c.Text)
	}
	prompt := fmt.Sprintf(e.prompts.Hypotheses, numbered(texts))
	response, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("hypothesis detection failed for %s: %w", doc.DocID, err)
	}
	result, err := common.ParseJSON[model.DetectedHypotheses](response)
	if err != nil {
		return nil, fmt.Errorf("hypothesis detection failed for %s: %w", doc.DocID, err)
	}

	records := make([]model.HypothesisRecord, 0, len(result.Hypotheses))
	for i, hyp := range result.Hypotheses {
		var supporting []string
		for _, idx := range hyp.SupportingClaimIdxs {
			if idx >= 0 && idx < len(claims) {
				supporting = append(supporting, claims[idx].ClaimID)
			}
		}
		confidence := hyp.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.5
		}
		records = append(records, model.HypothesisRecord{
			HypothesisID:       fmt.Sprintf("%s_h%d", doc.DocID, i),
			DocID:              doc.DocID,
			Text:               hyp.Text,
			Confidence:         confidence,
			SupportingClaimIDs: supporting,
		})
	}
	return records, nil
}

func docSentences(doc model.DocumentRecord) []string {
	var out []string
	for _, section := range doc.Sections {
		out = append(out, section.Sentences...)
	}
	return out
}

func numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d: %s\n", i, item)
	}
	return b.String()
}
