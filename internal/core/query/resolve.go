package query

import (
	"strings"

	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

// Ambiguous lookups (search by text rather than id) resolve by policy:
// prefer an exact id match, else the highest-confidence case-insensitive
// text match (ties broken by smallest id), else NotFoundError. This is a
// documented disambiguation choice, not a guaranteed-unique resolution.

func (e *Engine) resolveHypothesis(ref string) (model.HypothesisNode, error) {
	for _, id := range []string{ref, graph.HypothesisID(ref)} {
		if node, ok := e.store.Node(id); ok {
			if hyp, ok := node.(model.HypothesisNode); ok {
				return hyp, nil
			}
		}
	}

	needle := strings.ToLower(ref)
	var best model.HypothesisNode
	found := false
	for _, node := range e.store.NodesOfKind(model.KindHypothesis) {
		hyp := node.(model.HypothesisNode)
		if !strings.Contains(strings.ToLower(hyp.Text), needle) {
			continue
		}
		if !found || hyp.Confidence > best.Confidence {
			best, found = hyp, true
		}
	}
	if !found {
		return model.HypothesisNode{}, &NotFoundError{Kind: model.KindHypothesis, Ref: ref}
	}
	return best, nil
}

func (e *Engine) resolveClaim(ref string) (model.ClaimNode, error) {
	for _, id := range []string{ref, graph.ClaimID(ref)} {
		if node, ok := e.store.Node(id); ok {
			if claim, ok := node.(model.ClaimNode); ok {
				return claim, nil
			}
		}
	}

	needle := strings.ToLower(ref)
	var best model.ClaimNode
	found := false
	for _, node := range e.store.NodesOfKind(model.KindClaim) {
		claim := node.(model.ClaimNode)
		if !strings.Contains(strings.ToLower(claim.Text), needle) {
			continue
		}
		if !found || claim.Confidence > best.Confidence {
			best, found = claim, true
		}
	}
	if !found {
		return model.ClaimNode{}, &NotFoundError{Kind: model.KindClaim, Ref: ref}
	}
	return best, nil
}

// resolveEntityGroup finds the canonical group whose id matches name
// (exact, then case-insensitive), falling back to a case-insensitive
// match on entity text. Returns the group id and its member entity
// nodes, sorted by id.
func (e *Engine) resolveEntityGroup(name string) (string, []model.EntityNode, error) {
	entities := e.store.NodesOfKind(model.KindEntity)
	lower := strings.ToLower(name)

	group := ""
	for _, node := range entities {
		ent := node.(model.EntityNode)
		if ent.CanonicalGroupID == name {
			group = ent.CanonicalGroupID
			break
		}
	}
	if group == "" {
		for _, node := range entities {
			ent := node.(model.EntityNode)
			if strings.ToLower(ent.CanonicalGroupID) == lower {
				group = ent.CanonicalGroupID
				break
			}
		}
	}
	if group == "" {
		for _, node := range entities {
			ent := node.(model.EntityNode)
			if strings.ToLower(ent.Text) == lower {
				group = ent.CanonicalGroupID
				break
			}
		}
	}
	if group == "" {
		return "", nil, &NotFoundError{Kind: model.KindEntity, Ref: name}
	}

	var members []model.EntityNode
	for _, node := range entities {
		ent := node.(model.EntityNode)
		if ent.CanonicalGroupID == group {
			members = append(members, ent)
		}
	}
	return group, members, nil
}
