package queue

import (
	"fmt"
	"math/bits"

	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/bloom"
	"github.com/forestrie/go-batchedtree/hashchain"
)

// A queue region is a sequence of 32 byte aligned sections:
//
//	+--------------------------+  32B queue header
//	| header                   |
//	+--------------------------+  2 x 96B batch records
//	| batch records            |
//	+--------------------------+  2 x bloom filter regions (input, address)
//	| bloom filters            |
//	+--------------------------+  2 x hash chain stores, one digest per chunk
//	| hash chain stores        |
//	+--------------------------+  2 x value stores, one value per element (output)
//	| value stores             |
//	+--------------------------+
const (
	HeaderBytes = 32
	slotBytes   = 32

	// maxElements bounds batch sizes so every section size fits in 64 bits
	// with room to spare.
	maxElements = uint64(1) << 40
)

// Layout records the offset of each section relative to the queue region.
type Layout struct {
	BatchesOff     uint64
	BloomOff       [NumBatches]uint64
	BloomBytes     uint64
	HashchainOff   [NumBatches]uint64
	HashchainBytes uint64
	ValuesOff      [NumBatches]uint64
	ValuesBytes    uint64
	Total          uint64
}

type sizer struct {
	off uint64
	err error
}

func (s *sizer) take(n uint64) uint64 {
	start := s.off
	if s.err != nil {
		return start
	}
	sum, carry := bits.Add64(s.off, n, 0)
	if carry != 0 {
		s.err = fmt.Errorf("%w: region size overflows", ErrInvalidParams)
		return start
	}
	s.off = sum
	return start
}

func roundUp32(n uint64) uint64 {
	return (n + slotBytes - 1) &^ (slotBytes - 1)
}

// ComputeLayout validates p and returns the section offsets.
func ComputeLayout(p Params) (Layout, error) {
	if err := p.Validate(); err != nil {
		return Layout{}, err
	}
	var l Layout
	s := &sizer{}
	s.take(HeaderBytes)
	l.BatchesOff = s.take(NumBatches * batch.RecordBytes)

	if p.Kind.HasBloomFilters() {
		l.BloomBytes = roundUp32(bloom.RegionBytesV1(uint32(p.BloomCapacity)))
		for i := range l.BloomOff {
			l.BloomOff[i] = s.take(l.BloomBytes)
		}
	}

	l.HashchainBytes = hashchain.StoreBytes(p.NumZkpBatches())
	for i := range l.HashchainOff {
		l.HashchainOff[i] = s.take(l.HashchainBytes)
	}

	if p.Kind.HasValueStores() {
		l.ValuesBytes = hashchain.StoreBytes(p.BatchSize)
		for i := range l.ValuesOff {
			l.ValuesOff[i] = s.take(l.ValuesBytes)
		}
	}
	if s.err != nil {
		return Layout{}, s.err
	}
	l.Total = s.off
	return l, nil
}

// RegionBytes returns the size of a queue region for p.
func RegionBytes(p Params) (uint64, error) {
	l, err := ComputeLayout(p)
	if err != nil {
		return 0, err
	}
	return l.Total, nil
}
