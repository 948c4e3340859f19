package query

import (
	"fmt"

	"github.com/agenthands/cobalt/internal/core/model"
)

// NotFoundError reports that a query target resolved to no node.
type NotFoundError struct {
	Kind model.NodeKind
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s matches %q", e.Kind, e.Ref)
}
