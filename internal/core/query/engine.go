// Package query exposes the four read-only traversal queries over a
// finished reasoning graph. The engine never mutates the store, so any
// number of queries may run concurrently once the build and inference
// phases are done.
package query

import (
	"sort"

	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

type Engine struct {
	store *graph.Store
}

func New(store *graph.Store) *Engine {
	return &Engine{store: store}
}

type HypothesisInfo struct {
	ID         string                 `json:"id"`
	Text       string                 `json:"text"`
	Confidence float64                `json:"confidence"`
	Source     model.HypothesisSource `json:"source"`
}

type ClaimInfo struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	ClaimType  string  `json:"claim_type,omitempty"`
	DocID      string  `json:"doc_id"`
	Confidence float64 `json:"confidence"`
}

// ContradictionInfo records a contradicting claim and the direction the
// CONTRADICTS edge was found in, relative to the queried node.
type ContradictionInfo struct {
	Claim     ClaimInfo `json:"claim"`
	Direction string    `json:"direction"` // "incoming" or "outgoing"
}

// DocumentVerdict annotates a document with whether its claims support,
// contradict, or both support and contradict the queried hypothesis.
type DocumentVerdict struct {
	DocID       string `json:"doc_id"`
	Title       string `json:"title"`
	Supports    bool   `json:"supports"`
	Contradicts bool   `json:"contradicts"`
}

type HypothesisSupportResult struct {
	Hypothesis    HypothesisInfo      `json:"hypothesis"`
	Supporting    []ClaimInfo         `json:"supporting"`
	Contradicting []ContradictionInfo `json:"contradicting"`
	Documents     []DocumentVerdict   `json:"documents"`
}

// HypothesisSupport resolves a hypothesis by id or text and reports the
// claims backing it, the claims opposing it (CONTRADICTS is considered
// in both directions, since extraction may declare the edge from either
// side), and the documents owning that evidence.
func (e *Engine) HypothesisSupport(ref string) (*HypothesisSupportResult, error) {
	hyp, err := e.resolveHypothesis(ref)
	if err != nil {
		return nil, err
	}

	result := &HypothesisSupportResult{
		Hypothesis: HypothesisInfo{ID: hyp.ID, Text: hyp.Text, Confidence: hyp.Confidence, Source: hyp.Source},
	}

	supportDocs := make(map[string]bool)
	contraDocs := make(map[string]bool)

	for _, claimID := range e.store.Neighbors(hyp.ID, model.EdgeSupports, graph.In) {
		claim, ok := e.claim(claimID)
		if !ok {
			continue
		}
		result.Supporting = append(result.Supporting, claim)
		supportDocs[claim.DocID] = true
	}

	for _, dir := range []struct {
		d    graph.Direction
		name string
	}{{graph.In, "incoming"}, {graph.Out, "outgoing"}} {
		for _, claimID := range e.store.Neighbors(hyp.ID, model.EdgeContradicts, dir.d) {
			claim, ok := e.claim(claimID)
			if !ok {
				continue
			}
			result.Contradicting = append(result.Contradicting, ContradictionInfo{Claim: claim, Direction: dir.name})
			contraDocs[claim.DocID] = true
		}
	}

	docIDs := make([]string, 0, len(supportDocs)+len(contraDocs))
	seen := make(map[string]bool)
	for id := range supportDocs {
		if !seen[id] {
			seen[id] = true
			docIDs = append(docIDs, id)
		}
	}
	for id := range contraDocs {
		if !seen[id] {
			seen[id] = true
			docIDs = append(docIDs, id)
		}
	}
	sort.Strings(docIDs)
	for _, docID := range docIDs {
		verdict := DocumentVerdict{DocID: docID, Supports: supportDocs[docID], Contradicts: contraDocs[docID]}
		if node, ok := e.store.Node(graph.DocumentID(docID)); ok {
			verdict.Title = node.(model.DocumentNode).Title
		}
		result.Documents = append(result.Documents, verdict)
	}
	return result, nil
}

type EntityGroupInfo struct {
	CanonicalGroup string   `json:"canonical_group"`
	EntityIDs      []string `json:"entity_ids"`
}

type EvolutionStep struct {
	Claim       ClaimInfo `json:"claim"`
	OrderingKey int64     `json:"ordering_key"`
}

type EntityEvolutionResult struct {
	Entity        EntityGroupInfo  `json:"entity"`
	EvolutionPath []EvolutionStep  `json:"evolution_path"`
	Hypotheses    []HypothesisInfo `json:"hypotheses"`
}

// EntityEvolution resolves a canonical entity group and returns every
// claim mentioning any of its members, ordered by the owning document's
// ordering key (then claim id), with the hypotheses those claims
// support attached.
func (e *Engine) EntityEvolution(name string) (*EntityEvolutionResult, error) {
	group, members, err := e.resolveEntityGroup(name)
	if err != nil {
		return nil, err
	}

	result := &EntityEvolutionResult{Entity: EntityGroupInfo{CanonicalGroup: group}}
	for _, ent := range members {
		result.Entity.EntityIDs = append(result.Entity.EntityIDs, ent.ID)
	}

	claimSeen := make(map[string]bool)
	var steps []EvolutionStep
	for _, ent := range members {
		for _, claimID := range e.store.Neighbors(ent.ID, model.EdgeMentions, graph.In) {
			if claimSeen[claimID] {
				continue
			}
			claimSeen[claimID] = true
			claim, ok := e.claim(claimID)
			if !ok {
				continue
			}
			steps = append(steps, EvolutionStep{Claim: claim, OrderingKey: e.orderingKey(claim.DocID)})
		}
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].OrderingKey != steps[j].OrderingKey {
			return steps[i].OrderingKey < steps[j].OrderingKey
		}
		return steps[i].Claim.ID < steps[j].Claim.ID
	})
	result.EvolutionPath = steps

	hypSeen := make(map[string]bool)
	for _, step := range steps {
		for _, hypID := range e.store.Neighbors(step.Claim.ID, model.EdgeSupports, graph.Out) {
			if hypSeen[hypID] {
				continue
			}
			hypSeen[hypID] = true
			if node, ok := e.store.Node(hypID); ok {
				if hyp, ok := node.(model.HypothesisNode); ok {
					result.Hypotheses = append(result.Hypotheses, HypothesisInfo{
						ID: hyp.ID, Text: hyp.Text, Confidence: hyp.Confidence, Source: hyp.Source,
					})
				}
			}
		}
	}
	sort.Slice(result.Hypotheses, func(i, j int) bool { return result.Hypotheses[i].ID < result.Hypotheses[j].ID })
	return result, nil
}

type UnvalidatedHypothesis struct {
	Hypothesis         HypothesisInfo `json:"hypothesis"`
	SupportingCount    int            `json:"supporting_count"`
	ContradictingCount int            `json:"contradicting_count"`
	Reason             string         `json:"reason"` // "low_support" or "high_contradictions"
}

// UnvalidatedHypotheses returns hypotheses whose SUPPORTS in-degree is
// below minSupport or whose CONTRADICTS degree (either direction)
// exceeds maxContradictions, sorted by supporting count ascending then
// id ascending.
func (e *Engine) UnvalidatedHypotheses(minSupport, maxContradictions int) []UnvalidatedHypothesis {
	var out []UnvalidatedHypothesis
	for _, node := range e.store.NodesOfKind(model.KindHypothesis) {
		hyp := node.(model.HypothesisNode)
		supporting := len(e.store.Neighbors(hyp.ID, model.EdgeSupports, graph.In))
		contradicting := len(e.store.Neighbors(hyp.ID, model.EdgeContradicts, graph.In)) +
			len(e.store.Neighbors(hyp.ID, model.EdgeContradicts, graph.Out))
		if supporting >= minSupport && contradicting <= maxContradictions {
			continue
		}
		reason := "low_support"
		if supporting >= minSupport {
			reason = "high_contradictions"
		}
		out = append(out, UnvalidatedHypothesis{
			Hypothesis:         HypothesisInfo{ID: hyp.ID, Text: hyp.Text, Confidence: hyp.Confidence, Source: hyp.Source},
			SupportingCount:    supporting,
			ContradictingCount: contradicting,
			Reason:             reason,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SupportingCount != out[j].SupportingCount {
			return out[i].SupportingCount < out[j].SupportingCount
		}
		return out[i].Hypothesis.ID < out[j].Hypothesis.ID
	})
	return out
}

// RelatedNode is a neighbor reached over one relation kind.
type RelatedNode struct {
	ID   string         `json:"id"`
	Kind model.NodeKind `json:"kind"`
	Text string         `json:"text"`
}

// RelationPartition splits one relation kind's neighbors by whether the
// queried claim is the edge source or target.
type RelationPartition struct {
	Outgoing []RelatedNode `json:"outgoing"`
	Incoming []RelatedNode `json:"incoming"`
}

type ClaimRelationshipsResult struct {
	Claim       ClaimInfo         `json:"claim"`
	Supports    RelationPartition `json:"supports"`
	Contradicts RelationPartition `json:"contradicts"`
	Extends     RelationPartition `json:"extends"`
}

// ClaimRelationships resolves a claim and partitions its SUPPORTS,
// CONTRADICTS and EXTENDS neighbors into outgoing and incoming lists.
func (e *Engine) ClaimRelationships(ref string) (*ClaimRelationshipsResult, error) {
	claim, err := e.resolveClaim(ref)
	if err != nil {
		return nil, err
	}
	result := &ClaimRelationshipsResult{
		Claim: ClaimInfo{ID: claim.ID, Text: claim.Text, ClaimType: claim.ClaimType, DocID: claim.DocID, Confidence: claim.Confidence},
	}
	result.Supports = e.partition(claim.ID, model.EdgeSupports)
	result.Contradicts = e.partition(claim.ID, model.EdgeContradicts)
	result.Extends = e.partition(claim.ID, model.EdgeExtends)
	return result, nil
}

func (e *Engine) partition(id string, kind model.EdgeKind) RelationPartition {
	var p RelationPartition
	for _, nid := range e.store.Neighbors(id, kind, graph.Out) {
		if rn, ok := e.related(nid); ok {
			p.Outgoing = append(p.Outgoing, rn)
		}
	}
	for _, nid := range e.store.Neighbors(id, kind, graph.In) {
		if rn, ok := e.related(nid); ok {
			p.Incoming = append(p.Incoming, rn)
		}
	}
	return p
}

func (e *Engine) related(id string) (RelatedNode, bool) {
	node, ok := e.store.Node(id)
	if !ok {
		return RelatedNode{}, false
	}
	switch n := node.(type) {
	case model.ClaimNode:
		return RelatedNode{ID: n.ID, Kind: model.KindClaim, Text: n.Text}, true
	case model.HypothesisNode:
		return RelatedNode{ID: n.ID, Kind: model.KindHypothesis, Text: n.Text}, true
	}
	return RelatedNode{}, false
}

func (e *Engine) claim(id string) (ClaimInfo, bool) {
	node, ok := e.store.Node(id)
	if !ok {
		return ClaimInfo{}, false
	}
	claim, ok := node.(model.ClaimNode)
	if !ok {
		return ClaimInfo{}, false
	}
	return ClaimInfo{ID: claim.ID, Text: claim.Text, ClaimType: claim.ClaimType, DocID: claim.DocID, Confidence: claim.Confidence}, true
}

func (e *Engine) orderingKey(docID string) int64 {
	if node, ok := e.store.Node(graph.DocumentID(docID)); ok {
		if doc, ok := node.(model.DocumentNode); ok {
			return doc.OrderingKey
		}
	}
	return 0
}
