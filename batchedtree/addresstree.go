package batchedtree

import (
	"fmt"

	"github.com/forestrie/go-batchedtree/hasher"
)

// HighestAddressPlusOne bounds the indexed address tree: every address must
// be less than it.
var HighestAddressPlusOne = [32]byte{
	0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// AddressTree is an indexed tree of unique addresses. Addresses are queued
// in the address queue and inserted by applying proven chunks.
type AddressTree struct {
	*engine
}

// LowSentinelLeaf is the leaf at index 0 of an empty address tree: value 0
// pointing at index 0 with next value HighestAddressPlusOne.
func LowSentinelLeaf(h hasher.Hasher) ([32]byte, error) {
	var zero [32]byte
	index := hasher.Uint64Bytes(0)
	return h.Hashv(zero[:], index[:], HighestAddressPlusOne[:])
}

// InitAddressTree formats region as an address tree holding only the low
// sentinel leaf.
func InitAddressTree(region []byte, p Params, opts ...Option) (*AddressTree, error) {
	if p.TreeType == TreeTypeUnknown {
		p.TreeType = TreeTypeAddress
	}
	if p.TreeType != TreeTypeAddress {
		return nil, fmt.Errorf("%w: %s params for an address tree", ErrWrongTreeType, p.TreeType)
	}
	e, err := initEngine(region, p, 1, opts)
	if err != nil {
		return nil, err
	}
	leaf, err := LowSentinelLeaf(e.h)
	if err != nil {
		return nil, err
	}
	root, err := hasher.SingleLeafRoot(e.h, e.params.Height, leaf)
	if err != nil {
		return nil, err
	}
	e.roots.Push(root)
	e.infof("address tree %s initialized: height %d, %d bytes", e.TreeID(), e.params.Height, len(region))
	return &AddressTree{engine: e}, nil
}

// OpenAddressTree returns an AddressTree over a region formatted by
// InitAddressTree.
func OpenAddressTree(region []byte, opts ...Option) (*AddressTree, error) {
	e, _, err := openEngine(region, TreeTypeAddress, opts)
	if err != nil {
		return nil, err
	}
	return &AddressTree{engine: e}, nil
}

// InsertAddress queues address. It fails with queue.ErrDuplicateValue when
// the address may already be queued.
func (a *AddressTree) InsertAddress(address [32]byte) error {
	pending, err := pendingElements(a.input)
	if err != nil {
		return err
	}
	if a.NextIndex()+pending >= a.params.LeafCapacity() {
		return fmt.Errorf("%w: %d leaves inserted, %d queued", ErrTreeFull, a.NextIndex(), pending)
	}
	res, err := a.input.InsertIntoCurrentBatch(a.h, address, address)
	if err != nil {
		return err
	}
	return a.afterInsert(a.input, res)
}

// ApplyAddressChunk inserts the next ready chunk of the address queue.
func (a *AddressTree) ApplyAddressChunk(req NullifyChunkRequest) (Event, error) {
	return a.applyChunk(a.input, CircuitAddressAppend, req.NewRoot, req.Proof)
}
