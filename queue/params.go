package queue

import (
	"errors"
	"fmt"
	"math"

	"github.com/forestrie/go-batchedtree/bloom"
)

// NumBatches is the fixed number of double buffered batches in a queue.
const NumBatches = 2

type Kind uint8

const (
	KindUnknown Kind = iota
	// KindInput queues nullifiers for a state tree.
	KindInput
	// KindOutput queues appended leaves for a state tree.
	KindOutput
	// KindAddress queues new addresses for an address tree.
	KindAddress
)

var ErrInvalidParams = errors.New("queue: invalid parameters")

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindAddress:
		return "address"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// HasBloomFilters is true for the uniqueness enforcing kinds.
func (k Kind) HasBloomFilters() bool { return k == KindInput || k == KindAddress }

// HasValueStores is true for queues that keep the appended values.
func (k Kind) HasValueStores() bool { return k == KindOutput }

// Params fixes the shape of a queue region.
type Params struct {
	Kind         Kind
	BatchSize    uint64
	ZkpBatchSize uint64
	// BloomCapacity is the bloom filter size in bits.
	BloomCapacity uint64
	// NumIters is the number of bit positions set per element.
	NumIters uint64
}

func (p Params) NumZkpBatches() uint64 {
	if p.ZkpBatchSize == 0 {
		return 0
	}
	return p.BatchSize / p.ZkpBatchSize
}

// Validate checks the parameters describe a queue whose region size can be
// computed without overflow.
func (p Params) Validate() error {
	switch p.Kind {
	case KindInput, KindOutput, KindAddress:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidParams, p.Kind)
	}
	if p.BatchSize == 0 || p.ZkpBatchSize == 0 {
		return fmt.Errorf("%w: batch size and zkp batch size must be non zero", ErrInvalidParams)
	}
	if p.BatchSize%p.ZkpBatchSize != 0 {
		return fmt.Errorf("%w: batch size %d is not a multiple of zkp batch size %d",
			ErrInvalidParams, p.BatchSize, p.ZkpBatchSize)
	}
	if p.BatchSize > maxElements {
		return fmt.Errorf("%w: batch size %d exceeds %d", ErrInvalidParams, p.BatchSize, maxElements)
	}
	if !p.Kind.HasBloomFilters() {
		return nil
	}
	mBits, err := bloom.MBitsV1(p.BloomCapacity)
	if err != nil {
		return fmt.Errorf("%w: bloom capacity: %w", ErrInvalidParams, err)
	}
	if p.NumIters == 0 || p.NumIters > math.MaxUint8 {
		return fmt.Errorf("%w: bloom iterations %d must be in [1, 255]", ErrInvalidParams, p.NumIters)
	}
	if limit := bloom.MaxElementsV1(mBits, uint8(p.NumIters)); p.BatchSize > limit {
		return fmt.Errorf("%w: bloom capacity %d bits with %d iterations admits %d elements, batch size is %d",
			ErrInvalidParams, p.BloomCapacity, p.NumIters, limit, p.BatchSize)
	}
	return nil
}
