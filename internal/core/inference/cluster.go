package inference

import (
	"sort"

	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

// claimClusters finds candidate clusters: connected components of the
// undirected relatedness graph over claims, where two claims are related
// if they mention an entity in the same canonical group or an EXTENDS
// edge connects them in either direction. Components smaller than
// minSize are discarded. Output is fully deterministic: claims within a
// cluster are sorted by id and clusters by their first claim id.
func claimClusters(store *graph.Store, minSize int) [][]string {
	claims := store.NodesOfKind(model.KindClaim)
	adj := make(map[string]map[string]struct{}, len(claims))
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.NodeID())
		adj[c.NodeID()] = make(map[string]struct{})
	}

	// Shared canonical entity group.
	byGroup := make(map[string][]string)
	for _, id := range ids {
		for _, group := range claimGroups(store, id) {
			byGroup[group] = append(byGroup[group], id)
		}
	}
	for _, members := range byGroup {
		for i, a := range members {
			for _, b := range members[i+1:] {
				link(adj, a, b)
			}
		}
	}

	// EXTENDS in either direction.
	for _, id := range ids {
		for _, dir := range []graph.Direction{graph.Out, graph.In} {
			for _, other := range store.Neighbors(id, model.EdgeExtends, dir) {
				if _, ok := adj[other]; ok {
					link(adj, id, other)
				}
			}
		}
	}

	// Connected components, visiting claims in sorted order.
	visited := make(map[string]bool, len(ids))
	var clusters [][]string
	for _, id := range ids {
		if visited[id] {
			continue
		}
		component := component(id, adj, visited)
		if len(component) < minSize {
			continue
		}
		sort.Strings(component)
		clusters = append(clusters, component)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}

// claimGroups returns the canonical groups of the entities a claim
// mentions, sorted.
func claimGroups(store *graph.Store, claimID string) []string {
	seen := make(map[string]struct{})
	for _, entID := range store.Neighbors(claimID, model.EdgeMentions, graph.Out) {
		node, ok := store.Node(entID)
		if !ok {
			continue
		}
		if ent, ok := node.(model.EntityNode); ok && ent.CanonicalGroupID != "" {
			seen[ent.CanonicalGroupID] = struct{}{}
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

func link(adj map[string]map[string]struct{}, a, b string) {
	if a == b {
		return
	}
	adj[a][b] = struct{}{}
	adj[b][a] = struct{}{}
}

// component collects the connected component of start by iterative DFS
// over sorted neighbor lists.
func component(start string, adj map[string]map[string]struct{}, visited map[string]bool) []string {
	var out []string
	stack := []string{start}
	visited[start] = true
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, u)

		neighbors := make([]string, 0, len(adj[u]))
		for v := range adj[u] {
			neighbors = append(neighbors, v)
		}
		sort.Strings(neighbors)
		for _, v := range neighbors {
			if !visited[v] {
				visited[v] = true
				stack = append(stack, v)
			}
		}
	}
	return out
}
