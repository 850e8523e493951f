package batchedtree

import (
	"fmt"
	"math/bits"

	"github.com/forestrie/go-batchedtree/queue"
	"github.com/forestrie/go-batchedtree/roothistory"
)

// Layout holds the offsets of a tree region's sections. They are computed
// once from the parameters.
//
// .  | header | root history | input queue | output queue (state trees) |
type Layout struct {
	RootHistoryOff   uint64
	RootHistoryBytes uint64

	InputQueueOff uint64
	InputQueue    queue.Layout

	OutputQueueOff uint64
	OutputQueue    queue.Layout

	Total uint64
}

func addSize(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: region size overflows", ErrInvalidParams)
	}
	return sum, nil
}

// ComputeLayout validates p and returns the region layout.
func ComputeLayout(p Params) (Layout, error) {
	if err := p.Validate(); err != nil {
		return Layout{}, err
	}
	var err error
	l := Layout{
		RootHistoryOff:   HeaderBytes,
		RootHistoryBytes: roothistory.RegionBytes(p.RootHistoryCapacity),
	}
	if l.InputQueueOff, err = addSize(l.RootHistoryOff, l.RootHistoryBytes); err != nil {
		return Layout{}, err
	}
	if l.InputQueue, err = queue.ComputeLayout(p.InputQueueParams()); err != nil {
		return Layout{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if l.Total, err = addSize(l.InputQueueOff, l.InputQueue.Total); err != nil {
		return Layout{}, err
	}
	if !p.HasOutputQueue() {
		return l, nil
	}
	l.OutputQueueOff = l.Total
	if l.OutputQueue, err = queue.ComputeLayout(p.OutputQueueParams()); err != nil {
		return Layout{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if l.Total, err = addSize(l.OutputQueueOff, l.OutputQueue.Total); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// RegionBytes returns the size of the region a tree with parameters p needs.
func RegionBytes(p Params) (uint64, error) {
	l, err := ComputeLayout(p)
	if err != nil {
		return 0, err
	}
	return l.Total, nil
}

func (l Layout) rootHistory(region []byte) []byte {
	return region[l.RootHistoryOff : l.RootHistoryOff+l.RootHistoryBytes]
}

func (l Layout) inputQueue(region []byte) []byte {
	return region[l.InputQueueOff : l.InputQueueOff+l.InputQueue.Total]
}

func (l Layout) outputQueue(region []byte) []byte {
	return region[l.OutputQueueOff : l.OutputQueueOff+l.OutputQueue.Total]
}
