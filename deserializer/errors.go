package deserializer

import (
	"fmt"

	"github.com/strager/ilsexp/sexy"
)

// Error is the first problem found while deserializing. Node is the
// S-expression the problem was found at.
type Error struct {
	Node    *sexy.Node
	Message string
}

func (e *Error) Error() string {
	if e.Node == nil {
		return e.Message
	}
	return fmt.Sprintf("%s (at %s)", e.Message, e.Node)
}

// storeError records a problem unless one is already recorded, so the
// root cause is what gets reported.
func (d *Deserializer) storeError(node *sexy.Node, format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	d.err = &Error{Node: node, Message: fmt.Sprintf(format, args...)}
}
