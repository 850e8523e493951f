package batch

import "fmt"

// State is the lifecycle position of a batch: Fill -> Full -> Inserted -> Fill.
type State uint8

const (
	// StateFill accepts new elements.
	StateFill State = 0
	// StateInserted has had every chunk applied to the tree.
	StateInserted State = 1
	// StateFull holds batch size elements and waits for its chunks.
	StateFull State = 2
)

func (s State) String() string {
	switch s {
	case StateFill:
		return "fill"
	case StateInserted:
		return "inserted"
	case StateFull:
		return "full"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s State) valid() bool {
	return s == StateFill || s == StateInserted || s == StateFull
}
