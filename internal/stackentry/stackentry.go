// Package stackentry implements the operand stack's entry variant: a
// pushed guest Value, an operator byte awaiting its closing brace, or a
// live loop frame marker.
package stackentry

import (
	"strconv"

	"github.com/qrtlang/qrt/internal/value"
)

// Entry is the closed variant stored on the evaluator's operand stack.
type Entry interface {
	isEntry()
}

// ValueEntry wraps a guest Value sitting on the stack.
type ValueEntry struct {
	V value.Value
}

func (ValueEntry) isEntry() {}

// PendingOperator is an operator byte pushed when read, waiting for the
// matching closing brace that will apply it.
type PendingOperator struct {
	Op byte
}

func (PendingOperator) isEntry() {}

// LiveLoop marks an active loop frame, identified by its kill-id. It is
// always immediately followed (toward the top of stack) by a Linear
// recurse-point value pushed at loop-maturation time.
type LiveLoop struct {
	KillID int
}

func (LiveLoop) isEntry() {}

// Render produces a debug string for a single stack entry, in the spirit
// of the original interpreter's Abstract::represent.
func Render(e Entry) string {
	switch t := e.(type) {
	case ValueEntry:
		return "Var(" + value.Render(t.V) + ")"
	case PendingOperator:
		return "Operator(" + string(rune(t.Op)) + ")"
	case LiveLoop:
		return "Loop(" + strconv.Itoa(t.KillID) + ")"
	default:
		return "?"
	}
}
