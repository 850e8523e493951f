package hashchain

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	DigestBytes      = 32
	StoreHeaderBytes = 32

	storeLenOff = 0
	storeCapOff = 8
)

var (
	ErrStoreFull       = errors.New("hashchain: store is full")
	ErrStoreEmpty      = errors.New("hashchain: store is empty")
	ErrIndexOutOfRange = errors.New("hashchain: index out of range")
	ErrBadRegionSize   = errors.New("hashchain: region too small for store")
	ErrCorruptStore    = errors.New("hashchain: store header is inconsistent")
)

// StoreBytes returns the region size of a store holding capacity digests.
func StoreBytes(capacity uint64) uint64 {
	return StoreHeaderBytes + capacity*DigestBytes
}

// Store is a bounded vector of digests over a caller owned region:
//
//	[0:8]   length
//	[8:16]  capacity
//	[16:32] reserved
//	[32:]   capacity * 32 byte digests
type Store struct {
	region []byte
}

// InitStore formats region as an empty store.
func InitStore(region []byte, capacity uint64) (Store, error) {
	need := StoreBytes(capacity)
	if uint64(len(region)) < need {
		return Store{}, fmt.Errorf("%w: need %d have %d", ErrBadRegionSize, need, len(region))
	}
	clear(region[:need])
	binary.BigEndian.PutUint64(region[storeCapOff:], capacity)
	return Store{region: region[:need]}, nil
}

// OpenStore returns a view over a region previously formatted by InitStore.
func OpenStore(region []byte) (Store, error) {
	if len(region) < StoreHeaderBytes {
		return Store{}, ErrBadRegionSize
	}
	capacity := binary.BigEndian.Uint64(region[storeCapOff:])
	length := binary.BigEndian.Uint64(region[storeLenOff:])
	need := StoreBytes(capacity)
	if uint64(len(region)) < need {
		return Store{}, fmt.Errorf("%w: need %d have %d", ErrBadRegionSize, need, len(region))
	}
	if length > capacity {
		return Store{}, ErrCorruptStore
	}
	return Store{region: region[:need]}, nil
}

func (s Store) Len() uint64 { return binary.BigEndian.Uint64(s.region[storeLenOff:]) }
func (s Store) Cap() uint64 { return binary.BigEndian.Uint64(s.region[storeCapOff:]) }

func (s Store) setLen(n uint64) { binary.BigEndian.PutUint64(s.region[storeLenOff:], n) }

func (s Store) slot(i uint64) []byte {
	off := StoreHeaderBytes + i*DigestBytes
	return s.region[off : off+DigestBytes]
}

// Get returns the i'th digest.
func (s Store) Get(i uint64) ([32]byte, error) {
	var d [32]byte
	if i >= s.Len() {
		return d, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, i, s.Len())
	}
	copy(d[:], s.slot(i))
	return d, nil
}

// Last returns the most recently pushed digest.
func (s Store) Last() ([32]byte, bool) {
	n := s.Len()
	if n == 0 {
		return [32]byte{}, false
	}
	var d [32]byte
	copy(d[:], s.slot(n-1))
	return d, true
}

func (s Store) Push(d [32]byte) error {
	n := s.Len()
	if n >= s.Cap() {
		return ErrStoreFull
	}
	copy(s.slot(n), d[:])
	s.setLen(n + 1)
	return nil
}

// SetLast replaces the most recently pushed digest.
func (s Store) SetLast(d [32]byte) error {
	n := s.Len()
	if n == 0 {
		return ErrStoreEmpty
	}
	copy(s.slot(n-1), d[:])
	return nil
}

// Set overwrites the i'th digest.
func (s Store) Set(i uint64, d [32]byte) error {
	if i >= s.Len() {
		return fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, i, s.Len())
	}
	copy(s.slot(i), d[:])
	return nil
}

// Clear empties the store and zeroes its digests.
func (s Store) Clear() {
	clear(s.region[StoreHeaderBytes:])
	s.setLen(0)
}

// Digests returns a copy of the stored digests.
func (s Store) Digests() [][32]byte {
	n := s.Len()
	out := make([][32]byte, n)
	for i := uint64(0); i < n; i++ {
		copy(out[i][:], s.slot(i))
	}
	return out
}
