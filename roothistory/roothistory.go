// Package roothistory is a fixed capacity ring buffer of tree roots living in
// a caller owned region.
//
// Slots are written by Push in ring order. A slot may also be overwritten by
// the all zero sentinel, after which it is never treated as a provable root.
package roothistory

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	RootBytes   = 32
	HeaderBytes = 32

	// Header layout, big endian.
	//
	// .       | capacity | length | last index | reserved |
	// .       | 0 - 3    | 4 - 7  | 8 - 11     | 12 - 31  |
	capacityFirst  = 0
	lengthFirst    = 4
	lastIndexFirst = 8
)

var (
	ErrBadCapacity     = errors.New("roothistory: capacity must be non zero")
	ErrBadRegionSize   = errors.New("roothistory: region too small")
	ErrCorruptHeader   = errors.New("roothistory: header is inconsistent")
	ErrEmpty           = errors.New("roothistory: no roots have been pushed")
	ErrIndexOutOfRange = errors.New("roothistory: index out of range")
)

// Sentinel marks an invalidated slot.
var Sentinel [32]byte

// RegionBytes returns the region size of a history with capacity slots.
func RegionBytes(capacity uint32) uint64 {
	return HeaderBytes + uint64(capacity)*RootBytes
}

// History is a view over a root history region.
type History struct {
	region []byte
}

// Init formats region as an empty history.
func Init(region []byte, capacity uint32) (History, error) {
	if capacity == 0 {
		return History{}, ErrBadCapacity
	}
	need := RegionBytes(capacity)
	if uint64(len(region)) < need {
		return History{}, fmt.Errorf("%w: need %d have %d", ErrBadRegionSize, need, len(region))
	}
	clear(region[:need])
	binary.BigEndian.PutUint32(region[capacityFirst:], capacity)
	return History{region: region[:need]}, nil
}

// Open returns a view over a region formatted by Init.
func Open(region []byte) (History, error) {
	if len(region) < HeaderBytes {
		return History{}, ErrBadRegionSize
	}
	capacity := binary.BigEndian.Uint32(region[capacityFirst:])
	if capacity == 0 {
		return History{}, ErrBadCapacity
	}
	need := RegionBytes(capacity)
	if uint64(len(region)) < need {
		return History{}, fmt.Errorf("%w: need %d have %d", ErrBadRegionSize, need, len(region))
	}
	h := History{region: region[:need]}
	if h.Len() > capacity || (h.Len() > 0 && h.LastIndex() >= h.Len()) {
		return History{}, ErrCorruptHeader
	}
	return h, nil
}

func (h History) Cap() uint32       { return binary.BigEndian.Uint32(h.region[capacityFirst:]) }
func (h History) Len() uint32       { return binary.BigEndian.Uint32(h.region[lengthFirst:]) }
func (h History) LastIndex() uint32 { return binary.BigEndian.Uint32(h.region[lastIndexFirst:]) }

// FirstIndex is the slot of the oldest root.
func (h History) FirstIndex() uint32 {
	n := h.Len()
	if n == 0 {
		return 0
	}
	return (h.LastIndex() + 1) % n
}

func (h History) slot(i uint32) []byte {
	off := HeaderBytes + uint64(i)*RootBytes
	return h.region[off : off+RootBytes]
}

// NextSlot is the index the next Push writes.
func (h History) NextSlot() uint32 {
	if h.Len() == 0 {
		return 0
	}
	return (h.LastIndex() + 1) % h.Cap()
}

// Push writes root to the slot after the last one and returns its index.
func (h History) Push(root [32]byte) uint32 {
	n := h.Len()
	next := h.NextSlot()
	copy(h.slot(next), root[:])
	if n < h.Cap() {
		binary.BigEndian.PutUint32(h.region[lengthFirst:], n+1)
	}
	binary.BigEndian.PutUint32(h.region[lastIndexFirst:], next)
	return next
}

// Last returns the most recently pushed root.
func (h History) Last() ([32]byte, error) {
	if h.Len() == 0 {
		return Sentinel, ErrEmpty
	}
	return h.Get(h.LastIndex())
}

// Get is a plain indexed read; callers must tolerate the sentinel.
func (h History) Get(i uint32) ([32]byte, error) {
	var r [32]byte
	if i >= h.Len() {
		return r, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, i, h.Len())
	}
	copy(r[:], h.slot(i))
	return r, nil
}

// Roots returns the occupied slots oldest first.
func (h History) Roots() [][32]byte {
	n := h.Len()
	out := make([][32]byte, 0, n)
	for k := uint32(0); k < n; k++ {
		var r [32]byte
		copy(r[:], h.slot((h.FirstIndex()+k)%n))
		out = append(out, r)
	}
	return out
}

// Slots returns the occupied slots in index order.
func (h History) Slots() [][32]byte {
	n := h.Len()
	out := make([][32]byte, n)
	for i := uint32(0); i < n; i++ {
		copy(out[i][:], h.slot(i))
	}
	return out
}

// IndexOf returns the slot holding root. The sentinel is never found.
func (h History) IndexOf(root [32]byte) (uint32, bool) {
	if IsSentinel(root) {
		return 0, false
	}
	for i := uint32(0); i < h.Len(); i++ {
		if [32]byte(h.slot(i)) == root {
			return i, true
		}
	}
	return 0, false
}

func IsSentinel(root [32]byte) bool {
	return root == Sentinel
}

// InvalidateBefore overwrites with the sentinel every slot from the oldest
// forward up to, but excluding, rootIndex. It returns the number of slots
// written.
func (h History) InvalidateBefore(rootIndex uint32) (int, error) {
	n := h.Len()
	if rootIndex >= n {
		return 0, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, rootIndex, n)
	}
	zeroed := 0
	for i := h.FirstIndex(); i != rootIndex; i = (i + 1) % n {
		clear(h.slot(i))
		zeroed++
	}
	return zeroed, nil
}
