package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agenthands/cobalt/internal/core/model"
)

// Snapshot is the persisted graph representation exchanged with external
// storage: a node list and an edge list. Reloading a snapshot rebuilds a
// store through the normal mutation path, so every invariant is
// re-checked on the way in.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge `json:"edges"`
}

type SnapshotNode struct {
	ID      string          `json:"id"`
	Kind    model.NodeKind  `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type SnapshotEdge struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Kind model.EdgeKind `json:"kind"`
}

// Snapshot serializes the store. Nodes and edges are sorted so identical
// graphs produce byte-identical snapshots.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Nodes: make([]SnapshotNode, 0, len(s.nodes)),
		Edges: make([]SnapshotEdge, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		payload, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("marshal node %s: %w", n.NodeID(), err)
		}
		snap.Nodes = append(snap.Nodes, SnapshotNode{ID: n.NodeID(), Kind: n.NodeKind(), Payload: payload})
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })

	for key := range s.edges {
		snap.Edges = append(snap.Edges, SnapshotEdge{From: key.from, To: key.to, Kind: key.kind})
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		a, b := snap.Edges[i], snap.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Kind < b.Kind
	})
	return snap, nil
}

// FromSnapshot reconstructs a store from a persisted representation.
func FromSnapshot(snap *Snapshot) (*Store, error) {
	s := NewStore()
	for _, sn := range snap.Nodes {
		node, err := decodeNode(sn)
		if err != nil {
			return nil, err
		}
		if err := s.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, se := range snap.Edges {
		if err := s.AddEdge(se.From, se.To, se.Kind); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func decodeNode(sn SnapshotNode) (model.Node, error) {
	switch sn.Kind {
	case model.KindDocument:
		var n model.DocumentNode
		if err := json.Unmarshal(sn.Payload, &n); err != nil {
			return nil, fmt.Errorf("decode document node %s: %w", sn.ID, err)
		}
		return n, nil
	case model.KindEntity:
		var n model.EntityNode
		if err := json.Unmarshal(sn.Payload, &n); err != nil {
			return nil, fmt.Errorf("decode entity node %s: %w", sn.ID, err)
		}
		return n, nil
	case model.KindClaim:
		var n model.ClaimNode
		if err := json.Unmarshal(sn.Payload, &n); err != nil {
			return nil, fmt.Errorf("decode claim node %s: %w", sn.ID, err)
		}
		return n, nil
	case model.KindHypothesis:
		var n model.HypothesisNode
		if err := json.Unmarshal(sn.Payload, &n); err != nil {
			return nil, fmt.Errorf("decode hypothesis node %s: %w", sn.ID, err)
		}
		return n, nil
	default:
		return nil, &ValidationError{Subject: sn.ID, Reason: fmt.Sprintf("unknown node kind %q", sn.Kind)}
	}
}
