package batchedtree

import (
	"fmt"

	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/forestrie/go-batchedtree/queue"
	"github.com/google/uuid"
)

// TreeType distinguishes the two engine variants sharing the region format.
type TreeType uint8

const (
	TreeTypeUnknown TreeType = iota
	TreeTypeState
	TreeTypeAddress
)

func (t TreeType) String() string {
	switch t {
	case TreeTypeState:
		return "state"
	case TreeTypeAddress:
		return "address"
	default:
		return fmt.Sprintf("treetype(%d)", uint8(t))
	}
}

// MaxHeight bounds the tree height so that the leaf capacity fits a uint64.
const MaxHeight = 63

const (
	DefaultStateTreeHeight     = 32
	DefaultAddressTreeHeight   = 40
	DefaultCanopyDepth         = 10
	DefaultRootHistoryCapacity = 200

	DefaultStateBatchSize      = 50000
	DefaultStateZkpBatchSize   = 500
	DefaultAddressBatchSize    = 15000
	DefaultAddressZkpBatchSize = 250
	DefaultBloomFilterCapacity = 8_000_000
	DefaultBloomFilterNumIters = 3
)

// Params fixes the shape of a tree region. They are recorded in the region at
// Init and recovered by Open.
type Params struct {
	TreeType TreeType
	// TreeID is bound into the header and into signed checkpoints. Init
	// generates one when it is the nil uuid.
	TreeID      uuid.UUID
	Hasher      hasher.Kind
	Height      uint8
	CanopyDepth uint8

	RootHistoryCapacity uint32

	// Input queue (state tree nullifiers or address tree addresses).
	InputBatchSize    uint64
	InputZkpBatchSize uint64
	// BloomFilterCapacity is the size of each batch's filter in bits.
	BloomFilterCapacity uint64
	BloomFilterNumIters uint64

	// Output queue, state trees only.
	OutputBatchSize    uint64
	OutputZkpBatchSize uint64
}

func DefaultStateTreeParams() Params {
	return Params{
		TreeType:            TreeTypeState,
		Hasher:              hasher.KindSHA256,
		Height:              DefaultStateTreeHeight,
		CanopyDepth:         DefaultCanopyDepth,
		RootHistoryCapacity: DefaultRootHistoryCapacity,
		InputBatchSize:      DefaultStateBatchSize,
		InputZkpBatchSize:   DefaultStateZkpBatchSize,
		BloomFilterCapacity: DefaultBloomFilterCapacity,
		BloomFilterNumIters: DefaultBloomFilterNumIters,
		OutputBatchSize:     DefaultStateBatchSize,
		OutputZkpBatchSize:  DefaultStateZkpBatchSize,
	}
}

func DefaultAddressTreeParams() Params {
	return Params{
		TreeType:            TreeTypeAddress,
		Hasher:              hasher.KindSHA256,
		Height:              DefaultAddressTreeHeight,
		CanopyDepth:         DefaultCanopyDepth,
		RootHistoryCapacity: DefaultRootHistoryCapacity,
		InputBatchSize:      DefaultAddressBatchSize,
		InputZkpBatchSize:   DefaultAddressZkpBatchSize,
		BloomFilterCapacity: DefaultBloomFilterCapacity,
		BloomFilterNumIters: DefaultBloomFilterNumIters,
	}
}

// InputQueueParams returns the parameters of the nullifier or address queue.
func (p Params) InputQueueParams() queue.Params {
	kind := queue.KindInput
	if p.TreeType == TreeTypeAddress {
		kind = queue.KindAddress
	}
	return queue.Params{
		Kind:          kind,
		BatchSize:     p.InputBatchSize,
		ZkpBatchSize:  p.InputZkpBatchSize,
		BloomCapacity: p.BloomFilterCapacity,
		NumIters:      p.BloomFilterNumIters,
	}
}

// OutputQueueParams returns the parameters of a state tree's output queue.
func (p Params) OutputQueueParams() queue.Params {
	return queue.Params{
		Kind:         queue.KindOutput,
		BatchSize:    p.OutputBatchSize,
		ZkpBatchSize: p.OutputZkpBatchSize,
	}
}

// HasOutputQueue is true for state trees.
func (p Params) HasOutputQueue() bool { return p.TreeType == TreeTypeState }

// LeafCapacity is the number of leaves a tree of p.Height can hold.
func (p Params) LeafCapacity() uint64 { return uint64(1) << p.Height }

// Validate checks p describes a tree whose region can be laid out.
func (p Params) Validate() error {
	switch p.TreeType {
	case TreeTypeState, TreeTypeAddress:
	default:
		return fmt.Errorf("%w: unknown tree type %d", ErrInvalidParams, p.TreeType)
	}
	if _, err := hasher.New(p.Hasher); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if p.Height == 0 || p.Height > MaxHeight {
		return fmt.Errorf("%w: height %d must be in [1, %d]", ErrInvalidParams, p.Height, MaxHeight)
	}
	if p.CanopyDepth > p.Height {
		return fmt.Errorf("%w: canopy depth %d exceeds height %d", ErrInvalidParams, p.CanopyDepth, p.Height)
	}
	if p.RootHistoryCapacity == 0 {
		return fmt.Errorf("%w: root history capacity must be non zero", ErrInvalidParams)
	}

	in := p.InputQueueParams()
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: input queue: %w", ErrInvalidParams, err)
	}
	numZkp := in.NumZkpBatches()
	if p.HasOutputQueue() {
		out := p.OutputQueueParams()
		if err := out.Validate(); err != nil {
			return fmt.Errorf("%w: output queue: %w", ErrInvalidParams, err)
		}
		numZkp += out.NumZkpBatches()
	} else if p.OutputBatchSize != 0 || p.OutputZkpBatchSize != 0 {
		return fmt.Errorf("%w: %s trees have no output queue", ErrInvalidParams, p.TreeType)
	}

	// A root must survive until every chunk that may be proven against it has
	// had the chance to be applied.
	if uint64(p.RootHistoryCapacity) < numZkp {
		return fmt.Errorf("%w: root history capacity %d is less than the %d chunks the queues hold",
			ErrInvalidParams, p.RootHistoryCapacity, numZkp)
	}
	if p.InputBatchSize > p.LeafCapacity() || (p.HasOutputQueue() && p.OutputBatchSize > p.LeafCapacity()) {
		return fmt.Errorf("%w: a batch exceeds the %d leaves of a height %d tree",
			ErrInvalidParams, p.LeafCapacity(), p.Height)
	}
	return nil
}
