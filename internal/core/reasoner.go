// Package core wires ingestion, extraction, linking, graph construction,
// inference and querying into one reasoning pipeline over a document
// corpus.
package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core/builder"
	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/inference"
	"github.com/agenthands/cobalt/internal/core/model"
	"github.com/agenthands/cobalt/internal/core/query"
	"github.com/agenthands/cobalt/internal/extraction"
	"github.com/agenthands/cobalt/internal/ingest"
	"github.com/agenthands/cobalt/internal/linking"
	"github.com/agenthands/cobalt/internal/llm"
	"github.com/agenthands/cobalt/internal/storage"
)

// Reasoner owns the document store and the current graph, and runs the
// pipeline stages against them. The graph is rebuilt from storage on
// BuildGraph and extended in place by InferHypotheses; reads take the
// read half of the lock so queries stay cheap.
type Reasoner struct {
	cfg        *config.Config
	files      *storage.Store
	extractor  *extraction.Extractor
	linker     *linking.Linker
	builder    *builder.Builder
	inferencer *inference.Inferencer
	log        *zap.Logger

	mu sync.RWMutex
	g  *graph.Store

	// inferMu serializes whole inference runs. Infer walks the store's
	// maps without holding mu (oracle calls are slow), so a second run
	// must not reach Commit while the first is still reading.
	inferMu sync.Mutex
}

func NewReasoner(client llm.LLMClient, embedder llm.EmbedderClient, cfg *config.Config, log *zap.Logger) (*Reasoner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	files, err := storage.New(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	oracle := inference.NewLLMOracle(client, cfg.Inference, log)
	return &Reasoner{
		cfg:        cfg,
		files:      files,
		extractor:  extraction.New(client, cfg.Extraction, log),
		linker:     linking.New(embedder, cfg.Linking.SimilarityThreshold, log),
		builder:    builder.New(log),
		inferencer: inference.New(oracle, cfg.Inference, log),
		log:        log,
		g:          graph.NewStore(),
	}, nil
}

// IngestDocument parses an uploaded file and stores the resulting
// document record. The format is taken from the filename extension;
// anything that is not .html/.htm is treated as markdown.
func (r *Reasoner) IngestDocument(name string, data []byte, orderingKey int64) (model.DocumentRecord, error) {
	var (
		doc model.DocumentRecord
		err error
	)
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		doc, err = ingest.ParseHTML(name, data, orderingKey)
	} else {
		doc, err = ingest.ParseMarkdown(name, data, orderingKey)
	}
	if err != nil {
		return model.DocumentRecord{}, err
	}
	if err := r.files.SaveDocument(doc); err != nil {
		return model.DocumentRecord{}, err
	}
	r.log.Info("ingested document", zap.String("doc_id", doc.DocID), zap.String("title", doc.Title))
	return doc, nil
}

// ProcessDocument runs extraction over a stored document and persists
// the entity, claim and hypothesis records for the next graph build.
func (r *Reasoner) ProcessDocument(ctx context.Context, docID string) error {
	doc, err := r.files.LoadDocument(docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}

	entities, err := r.extractor.ExtractEntities(ctx, doc)
	if err != nil {
		return err
	}
	if err := r.files.SaveEntities(docID, entities); err != nil {
		return err
	}

	claims, err := r.extractor.ExtractClaims(ctx, doc, entities)
	if err != nil {
		return err
	}
	claims = extraction.DeriveClaimRelations(claims)
	if err := r.files.SaveClaims(docID, claims); err != nil {
		return err
	}

	hyps, err := r.extractor.DetectHypotheses(ctx, doc, claims)
	if err != nil {
		return err
	}
	if err := r.files.SaveHypotheses(docID, hyps); err != nil {
		return err
	}

	r.log.Info("processed document",
		zap.String("doc_id", docID),
		zap.Int("entities", len(entities)),
		zap.Int("claims", len(claims)),
		zap.Int("hypotheses", len(hyps)))
	return nil
}

// BuildGraph rebuilds the graph from every processed document, linking
// entities across the whole corpus first, and snapshots the result.
func (r *Reasoner) BuildGraph(ctx context.Context) (graph.Stats, error) {
	docIDs, err := r.files.ListDocuments()
	if err != nil {
		return graph.Stats{}, err
	}

	var in builder.Input
	for _, docID := range docIDs {
		doc, err := r.files.LoadDocument(docID)
		if err != nil {
			return graph.Stats{}, err
		}
		in.Documents = append(in.Documents, doc)

		entities, err := r.files.LoadEntities(docID)
		if err == nil {
			in.Entities = append(in.Entities, entities...)
		}
		claims, err := r.files.LoadClaims(docID)
		if err == nil {
			in.Claims = append(in.Claims, claims...)
		}
		hyps, err := r.files.LoadHypotheses(docID)
		if err == nil {
			in.Hypotheses = append(in.Hypotheses, hyps...)
		}
	}

	in.EntityLinks, err = r.linker.Link(ctx, in.Entities)
	if err != nil {
		return graph.Stats{}, err
	}

	store, err := r.builder.Build(in)
	if err != nil {
		return graph.Stats{}, err
	}

	r.mu.Lock()
	r.g = store
	r.mu.Unlock()

	if snap, err := store.Snapshot(); err != nil {
		r.log.Warn("snapshot encode failed", zap.Error(err))
	} else if path, err := r.files.SaveSnapshot("graph", snap); err != nil {
		r.log.Warn("snapshot write failed", zap.Error(err))
	} else {
		r.log.Info("graph built", zap.String("snapshot", path))
	}
	return store.Stats(), nil
}

// InferHypotheses runs the inference pass over the current graph and
// commits the accepted hypotheses into it. Runs are serialized:
// overlapping calls execute one after another against whatever graph is
// current when their turn comes.
func (r *Reasoner) InferHypotheses(ctx context.Context) ([]inference.InferredHypothesis, error) {
	r.inferMu.Lock()
	defer r.inferMu.Unlock()

	r.mu.RLock()
	store := r.g
	r.mu.RUnlock()

	inferred, err := r.inferencer.Infer(ctx, store)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.g != store {
		return nil, fmt.Errorf("graph was rebuilt during inference, rerun")
	}
	if err := inference.Commit(store, inferred); err != nil {
		return nil, err
	}
	return inferred, nil
}

// DocumentSummary is the listing view of a stored document.
type DocumentSummary struct {
	DocID   string   `json:"doc_id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
}

// ListDocuments summarizes every stored document, sorted by id.
func (r *Reasoner) ListDocuments() ([]DocumentSummary, error) {
	ids, err := r.files.ListDocuments()
	if err != nil {
		return nil, err
	}
	out := make([]DocumentSummary, 0, len(ids))
	for _, id := range ids {
		doc, err := r.files.LoadDocument(id)
		if err != nil {
			r.log.Warn("skipping unreadable document file", zap.String("doc_id", id), zap.Error(err))
			continue
		}
		out = append(out, DocumentSummary{DocID: doc.DocID, Title: doc.Title, Authors: doc.Authors})
	}
	return out, nil
}

// RestoreSnapshot replaces the current graph with a stored snapshot.
func (r *Reasoner) RestoreSnapshot(path string) error {
	snap, err := r.files.LoadSnapshot(path)
	if err != nil {
		return err
	}
	store, err := graph.FromSnapshot(snap)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.g = store
	r.mu.Unlock()
	return nil
}

func (r *Reasoner) HypothesisSupport(ref string) (*query.HypothesisSupportResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return query.New(r.g).HypothesisSupport(ref)
}

func (r *Reasoner) EntityEvolution(name string) (*query.EntityEvolutionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return query.New(r.g).EntityEvolution(name)
}

func (r *Reasoner) UnvalidatedHypotheses(minSupport, maxContradictions int) []query.UnvalidatedHypothesis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return query.New(r.g).UnvalidatedHypotheses(minSupport, maxContradictions)
}

func (r *Reasoner) ClaimRelationships(ref string) (*query.ClaimRelationshipsResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return query.New(r.g).ClaimRelationships(ref)
}

func (r *Reasoner) Stats() graph.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.g.Stats()
}
