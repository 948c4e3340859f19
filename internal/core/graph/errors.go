package graph

import (
	"fmt"

	"github.com/agenthands/cobalt/internal/core/model"
)

// ValidationError reports a malformed record or an illegal mutation, such
// as re-adding a node id with a different payload or a self-loop on a
// semantic edge kind. A build that hits one aborts entirely.
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Subject, e.Reason)
}

// ReferenceError reports an edge whose endpoint does not exist as a node.
// The store is left unchanged when one is returned.
type ReferenceError struct {
	From    string
	To      string
	Kind    model.EdgeKind
	Missing string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("edge %s -[%s]-> %s references missing node %s", e.From, e.Kind, e.To, e.Missing)
}
