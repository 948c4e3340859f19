package graph

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/agenthands/cobalt/internal/core/model"
)

// Direction selects which endpoint of an edge a traversal starts from.
type Direction int

const (
	// Out follows edges where the node is the source.
	Out Direction = iota
	// In follows edges where the node is the target.
	In
)

type edgeKey struct {
	from string
	to   string
	kind model.EdgeKind
}

type adjKey struct {
	id   string
	kind model.EdgeKind
	dir  Direction
}

// endpointRule restricts which node kinds an edge kind may connect.
type endpointRule struct {
	from map[model.NodeKind]bool
	to   map[model.NodeKind]bool
}

var endpointRules = map[model.EdgeKind]endpointRule{
	model.EdgeContains: {
		from: nodeKinds(model.KindDocument),
		to:   nodeKinds(model.KindEntity, model.KindClaim, model.KindHypothesis),
	},
	model.EdgeMentions: {
		from: nodeKinds(model.KindClaim, model.KindDocument),
		to:   nodeKinds(model.KindEntity),
	},
	model.EdgeLinksTo: {
		from: nodeKinds(model.KindEntity),
		to:   nodeKinds(model.KindEntity),
	},
	model.EdgeSupports: {
		from: nodeKinds(model.KindClaim),
		to:   nodeKinds(model.KindHypothesis),
	},
	model.EdgeContradicts: {
		from: nodeKinds(model.KindClaim),
		to:   nodeKinds(model.KindClaim, model.KindHypothesis),
	},
	model.EdgeExtends: {
		from: nodeKinds(model.KindClaim),
		to:   nodeKinds(model.KindClaim),
	},
	model.EdgeBasedOn: {
		from: nodeKinds(model.KindEntity, model.KindClaim),
		to:   nodeKinds(model.KindHypothesis, model.KindClaim),
	},
}

func nodeKinds(kinds ...model.NodeKind) map[model.NodeKind]bool {
	set := make(map[model.NodeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// Store is a typed directed multigraph with an adjacency index keyed by
// (node id, edge kind, direction), giving O(1) amortized neighbor lookup.
// It is not safe for concurrent mutation; the pipeline has a single
// writer per phase and the store is immutable while queries run.
type Store struct {
	nodes map[string]model.Node
	edges map[edgeKey]struct{}
	adj   map[adjKey]map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		nodes: make(map[string]model.Node),
		edges: make(map[edgeKey]struct{}),
		adj:   make(map[adjKey]map[string]struct{}),
	}
}

// AddNode inserts a node. Re-adding the same id with an identical payload
// is a no-op; re-adding with a different payload returns a
// *ValidationError, since content-derived ids make that a genuine bug.
func (s *Store) AddNode(n model.Node) error {
	id := n.NodeID()
	if id == "" {
		return &ValidationError{Subject: string(n.NodeKind()), Reason: "empty node id"}
	}
	if existing, ok := s.nodes[id]; ok {
		if reflect.DeepEqual(existing, n) {
			return nil
		}
		return &ValidationError{Subject: id, Reason: "node already exists with a different payload"}
	}
	s.nodes[id] = n
	return nil
}

// AddEdge inserts a directed typed edge. Both endpoints must already
// exist (*ReferenceError otherwise, store unchanged) and must match the
// endpoint node kinds the edge kind allows (*ValidationError otherwise).
// Duplicate (from, to, kind) triples are no-ops. Self-loops are rejected
// for the semantic kinds SUPPORTS, CONTRADICTS and EXTENDS, and LINKS_TO
// is only accepted between entities sharing a canonical group.
func (s *Store) AddEdge(from, to string, kind model.EdgeKind) error {
	if !model.ValidEdgeKind(kind) {
		return &ValidationError{Subject: string(kind), Reason: "unknown edge kind"}
	}
	if _, ok := s.nodes[from]; !ok {
		return &ReferenceError{From: from, To: to, Kind: kind, Missing: from}
	}
	if _, ok := s.nodes[to]; !ok {
		return &ReferenceError{From: from, To: to, Kind: kind, Missing: to}
	}
	if from == to {
		switch kind {
		case model.EdgeSupports, model.EdgeContradicts, model.EdgeExtends:
			return &ValidationError{Subject: from, Reason: fmt.Sprintf("self-loop not allowed for %s", kind)}
		}
	}
	rule := endpointRules[kind]
	if !rule.from[s.nodes[from].NodeKind()] {
		return &ValidationError{Subject: from,
			Reason: fmt.Sprintf("%s cannot start at a %s node", kind, s.nodes[from].NodeKind())}
	}
	if !rule.to[s.nodes[to].NodeKind()] {
		return &ValidationError{Subject: to,
			Reason: fmt.Sprintf("%s cannot end at a %s node", kind, s.nodes[to].NodeKind())}
	}
	if kind == model.EdgeLinksTo {
		src := s.nodes[from].(model.EntityNode)
		dst := s.nodes[to].(model.EntityNode)
		if src.CanonicalGroupID != dst.CanonicalGroupID {
			return &ValidationError{Subject: from, Reason: "links_to endpoints belong to different canonical groups"}
		}
	}

	key := edgeKey{from: from, to: to, kind: kind}
	if _, ok := s.edges[key]; ok {
		return nil
	}
	s.edges[key] = struct{}{}
	s.index(adjKey{id: from, kind: kind, dir: Out}, to)
	s.index(adjKey{id: to, kind: kind, dir: In}, from)
	return nil
}

func (s *Store) index(key adjKey, neighbor string) {
	set, ok := s.adj[key]
	if !ok {
		set = make(map[string]struct{})
		s.adj[key] = set
	}
	set[neighbor] = struct{}{}
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (model.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// HasEdge reports whether the exact (from, to, kind) edge exists.
func (s *Store) HasEdge(from, to string, kind model.EdgeKind) bool {
	_, ok := s.edges[edgeKey{from: from, to: to, kind: kind}]
	return ok
}

// Neighbors returns the ids reachable from id via exactly the given edge
// kind and direction, sorted for deterministic iteration.
func (s *Store) Neighbors(id string, kind model.EdgeKind, dir Direction) []string {
	set := s.adj[adjKey{id: id, kind: kind, dir: dir}]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NodesOfKind returns every node of the given kind, sorted by id.
func (s *Store) NodesOfKind(kind model.NodeKind) []model.Node {
	var out []model.Node
	for _, n := range s.nodes {
		if n.NodeKind() == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID() < out[j].NodeID() })
	return out
}

// NodeCount returns the total number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the total number of edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// AddSupport records that a claim backs a hypothesis: it adds the
// SUPPORTS edge and keeps the hypothesis node's SupportingClaimIDs in
// sync as a single logical step. Idempotent.
func (s *Store) AddSupport(claimNodeID, hypNodeID string) error {
	hyp, ok := s.nodes[hypNodeID]
	if !ok {
		return &ReferenceError{From: claimNodeID, To: hypNodeID, Kind: model.EdgeSupports, Missing: hypNodeID}
	}
	hypNode, ok := hyp.(model.HypothesisNode)
	if !ok {
		return &ValidationError{Subject: hypNodeID, Reason: "supports target is not a hypothesis"}
	}
	if _, ok := s.nodes[claimNodeID]; !ok {
		return &ReferenceError{From: claimNodeID, To: hypNodeID, Kind: model.EdgeSupports, Missing: claimNodeID}
	}
	if _, ok := s.nodes[claimNodeID].(model.ClaimNode); !ok {
		return &ValidationError{Subject: claimNodeID, Reason: "supports source is not a claim"}
	}

	if err := s.AddEdge(claimNodeID, hypNodeID, model.EdgeSupports); err != nil {
		return err
	}
	for _, id := range hypNode.SupportingClaimIDs {
		if id == claimNodeID {
			return nil
		}
	}
	ids := make([]string, 0, len(hypNode.SupportingClaimIDs)+1)
	ids = append(ids, hypNode.SupportingClaimIDs...)
	ids = append(ids, claimNodeID)
	sort.Strings(ids)
	hypNode.SupportingClaimIDs = ids
	s.nodes[hypNodeID] = hypNode
	return nil
}

// Stats reports node and edge counts per kind.
type Stats struct {
	Nodes      int                    `json:"nodes"`
	Edges      int                    `json:"edges"`
	NodeCounts map[model.NodeKind]int `json:"node_counts"`
	EdgeCounts map[model.EdgeKind]int `json:"edge_counts"`
}

func (s *Store) Stats() Stats {
	st := Stats{
		Nodes:      len(s.nodes),
		Edges:      len(s.edges),
		NodeCounts: make(map[model.NodeKind]int),
		EdgeCounts: make(map[model.EdgeKind]int),
	}
	for _, n := range s.nodes {
		st.NodeCounts[n.NodeKind()]++
	}
	for key := range s.edges {
		st.EdgeCounts[key.kind]++
	}
	return st
}
