// Package inference proposes new hypotheses from clusters of related
// claims in a built graph. It never deletes or mutates existing nodes;
// committing a run only adds hypothesis nodes and SUPPORTS edges, so the
// phase is re-entrant.
package inference

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/agenthands/cobalt/internal/config"
	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

// InferredHypothesis is one accepted oracle proposal, ready to commit.
// DuplicateOf is set when the proposal matched an existing hypothesis;
// committing then only adds SUPPORTS edges into that node.
type InferredHypothesis struct {
	ID          string   `json:"id,omitempty"`
	Text        string   `json:"text"`
	Confidence  float64  `json:"confidence"`
	Rationale   string   `json:"rationale,omitempty"`
	ClaimIDs    []string `json:"claim_ids"`
	ClusterSize int      `json:"cluster_size"`
	DuplicateOf string   `json:"duplicate_of,omitempty"`
}

type Inferencer struct {
	oracle Oracle
	log    *zap.Logger

	MinSupportingClaims int
	MaxHypotheses       int
	SimilarityThreshold float64
	Concurrency         int
}

func New(oracle Oracle, cfg config.InferenceConfig, log *zap.Logger) *Inferencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inferencer{
		oracle:              oracle,
		log:                 log,
		MinSupportingClaims: cfg.MinSupportingClaims,
		MaxHypotheses:       cfg.MaxHypotheses,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Concurrency:         cfg.Concurrency,
	}
}

// Infer clusters the graph's claims, asks the oracle for one hypothesis
// per cluster, deduplicates against existing hypotheses, and applies the
// (cluster size desc, confidence desc) cap. Oracle calls run
// concurrently under the configured limit; a failed cluster is skipped,
// never fatal. The returned list is ready for Commit.
func (inf *Inferencer) Infer(ctx context.Context, store *graph.Store) ([]InferredHypothesis, error) {
	runID := uuid.New().String()
	clusters := claimClusters(store, inf.MinSupportingClaims)
	inf.log.Info("inference run started",
		zap.String("run_id", runID),
		zap.Int("clusters", len(clusters)))

	proposals := make([]*model.OracleProposal, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(inf.Concurrency))
	for i, cluster := range clusters {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			proposal, err := inf.oracle.Infer(gctx, inf.claimTexts(store, cluster))
			if err != nil {
				inf.log.Warn("cluster skipped: oracle failed",
					zap.String("run_id", runID),
					zap.String("first_claim", cluster[0]),
					zap.Int("cluster_size", len(cluster)),
					zap.Error(err))
				return nil
			}
			proposals[i] = proposal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge is serialized from here on: dedup and capping read shared
	// state and must see proposals in deterministic cluster order.
	existing := existingHypotheses(store)
	var accepted []InferredHypothesis
	for i, cluster := range clusters {
		proposal := proposals[i]
		if proposal == nil {
			continue
		}
		ih := InferredHypothesis{
			Text:        proposal.Text,
			Confidence:  proposal.Confidence,
			Rationale:   proposal.Rationale,
			ClaimIDs:    cluster,
			ClusterSize: len(cluster),
		}
		if dup := inf.findDuplicate(proposal.Text, existing, accepted); dup != "" {
			ih.DuplicateOf = dup
		} else {
			ih.ID = graph.InferredHypothesisID(cluster)
		}
		accepted = append(accepted, ih)
	}

	result := inf.cap(accepted)
	inf.log.Info("inference run complete",
		zap.String("run_id", runID),
		zap.Int("accepted", len(result)))
	return result, nil
}

func (inf *Inferencer) claimTexts(store *graph.Store, cluster []string) []string {
	texts := make([]string, 0, len(cluster))
	for _, id := range cluster {
		if node, ok := store.Node(id); ok {
			if claim, ok := node.(model.ClaimNode); ok {
				texts = append(texts, claim.Text)
			}
		}
	}
	return texts
}

// existingHypotheses returns node id -> text for every hypothesis
// already in the graph, explicit or previously inferred.
func existingHypotheses(store *graph.Store) map[string]string {
	out := make(map[string]string)
	for _, n := range store.NodesOfKind(model.KindHypothesis) {
		hyp := n.(model.HypothesisNode)
		out[hyp.ID] = hyp.Text
	}
	return out
}

// findDuplicate returns the node id of an existing or already-accepted
// hypothesis whose text exceeds the similarity threshold, preferring the
// best match.
func (inf *Inferencer) findDuplicate(text string, existing map[string]string, accepted []InferredHypothesis) string {
	best := ""
	bestScore := inf.SimilarityThreshold

	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if score := textSimilarity(text, existing[id]); score >= bestScore {
			best, bestScore = id, score
		}
	}
	for _, prev := range accepted {
		if prev.DuplicateOf != "" {
			continue
		}
		if score := textSimilarity(text, prev.Text); score >= bestScore {
			best, bestScore = prev.ID, score
		}
	}
	return best
}

// cap keeps at most MaxHypotheses non-duplicate proposals, ranked by
// cluster size descending, then confidence descending, then first claim
// id ascending so the operation is reproducible. Duplicates only add
// edges to existing nodes and are kept regardless.
func (inf *Inferencer) cap(accepted []InferredHypothesis) []InferredHypothesis {
	var fresh, dups []InferredHypothesis
	for _, ih := range accepted {
		if ih.DuplicateOf != "" {
			dups = append(dups, ih)
		} else {
			fresh = append(fresh, ih)
		}
	}
	if len(fresh) > inf.MaxHypotheses {
		sort.SliceStable(fresh, func(i, j int) bool {
			if fresh[i].ClusterSize != fresh[j].ClusterSize {
				return fresh[i].ClusterSize > fresh[j].ClusterSize
			}
			if fresh[i].Confidence != fresh[j].Confidence {
				return fresh[i].Confidence > fresh[j].Confidence
			}
			return fresh[i].ClaimIDs[0] < fresh[j].ClaimIDs[0]
		})
		fresh = fresh[:inf.MaxHypotheses]
	}

	out := append(fresh, dups...)
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimIDs[0] < out[j].ClaimIDs[0] })
	return out
}

// Commit merges accepted hypotheses into the graph: a new hypothesis
// node plus SUPPORTS edges from its cluster, or just the edges when the
// proposal duplicated an existing node. Append-only and idempotent.
func Commit(store *graph.Store, inferred []InferredHypothesis) error {
	for _, ih := range inferred {
		target := ih.DuplicateOf
		if target == "" {
			claimIDs := make([]string, len(ih.ClaimIDs))
			copy(claimIDs, ih.ClaimIDs)
			sort.Strings(claimIDs)
			node := model.HypothesisNode{
				ID:                 ih.ID,
				Text:               ih.Text,
				Confidence:         ih.Confidence,
				Source:             model.SourceInferred,
				SupportingClaimIDs: claimIDs,
				Rationale:          ih.Rationale,
			}
			if err := store.AddNode(node); err != nil {
				return err
			}
			target = ih.ID
		}
		for _, claimID := range ih.ClaimIDs {
			if err := store.AddSupport(claimID, target); err != nil {
				return err
			}
		}
	}
	return nil
}
