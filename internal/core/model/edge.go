package model

// EdgeKind is the type tag of a directed edge. The graph has multigraph
// semantics: parallel edges of different kinds may connect the same pair,
// but at most one edge of a given kind exists in a given direction.
type EdgeKind string

const (
	// EdgeContains links a document to an entity, claim or hypothesis it owns.
	EdgeContains EdgeKind = "contains"
	// EdgeMentions links a claim or document to an entity it references.
	EdgeMentions EdgeKind = "mentions"
	// EdgeLinksTo connects two entity instances in the same canonical group.
	// Always present in both directions.
	EdgeLinksTo EdgeKind = "links_to"
	// EdgeSupports links a claim to a hypothesis it backs.
	EdgeSupports EdgeKind = "supports"
	// EdgeContradicts links a claim to a claim or hypothesis it opposes.
	EdgeContradicts EdgeKind = "contradicts"
	// EdgeExtends links a claim to a claim it generalizes or refines.
	EdgeExtends EdgeKind = "extends"
	// EdgeBasedOn links an entity or claim to the hypothesis or claim it grounds.
	EdgeBasedOn EdgeKind = "based_on"
)

// EdgeKinds lists every edge kind, for stats and snapshot validation.
var EdgeKinds = []EdgeKind{
	EdgeContains, EdgeMentions, EdgeLinksTo,
	EdgeSupports, EdgeContradicts, EdgeExtends, EdgeBasedOn,
}

// ValidEdgeKind reports whether k names a known edge kind.
func ValidEdgeKind(k EdgeKind) bool {
	for _, known := range EdgeKinds {
		if k == known {
			return true
		}
	}
	return false
}
