package batchedtree

import (
	"fmt"

	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/forestrie/go-batchedtree/queue"
)

// AppendChunkRequest carries the root produced by appending the next chunk
// of the output queue and the proof of that transition.
type AppendChunkRequest struct {
	NewRoot [32]byte
	Proof   CompressedProof
}

// NullifyChunkRequest carries the root produced by nullifying (or, for
// address trees, inserting) the next chunk of the input queue and the proof
// of that transition.
type NullifyChunkRequest struct {
	NewRoot [32]byte
	Proof   CompressedProof
}

// StateTree is an append and nullify tree. Leaves are appended through the
// output queue and nullified through the input queue.
type StateTree struct {
	*engine
	output *queue.Queue
}

// InitStateTree formats region as an empty state tree. The region must be
// exactly RegionBytes(p) long.
func InitStateTree(region []byte, p Params, opts ...Option) (*StateTree, error) {
	if p.TreeType == TreeTypeUnknown {
		p.TreeType = TreeTypeState
	}
	if p.TreeType != TreeTypeState {
		return nil, fmt.Errorf("%w: %s params for a state tree", ErrWrongTreeType, p.TreeType)
	}
	e, err := initEngine(region, p, 0, opts)
	if err != nil {
		return nil, err
	}
	output, err := queue.Init(e.layout.outputQueue(region), e.params.OutputQueueParams(), 0)
	if err != nil {
		return nil, err
	}
	zeros, err := hasher.ZeroBytes(e.h, e.params.Height)
	if err != nil {
		return nil, err
	}
	e.roots.Push(zeros[e.params.Height])
	e.infof("state tree %s initialized: height %d, %d bytes", e.TreeID(), e.params.Height, len(region))
	return &StateTree{engine: e, output: output}, nil
}

// OpenStateTree returns a StateTree over a region formatted by InitStateTree.
func OpenStateTree(region []byte, opts ...Option) (*StateTree, error) {
	e, output, err := openEngine(region, TreeTypeState, opts)
	if err != nil {
		return nil, err
	}
	return &StateTree{engine: e, output: output}, nil
}

func (s *StateTree) OutputQueue() *queue.Queue { return s.output }

// AppendLeaf queues value and returns the leaf index reserved for it.
func (s *StateTree) AppendLeaf(value [32]byte) (uint64, error) {
	if s.output.NextIndex() >= s.params.LeafCapacity() {
		return 0, fmt.Errorf("%w: %d leaves reserved", ErrTreeFull, s.output.NextIndex())
	}
	res, err := s.output.Append(s.h, value)
	if err != nil {
		return 0, err
	}
	if err := s.afterInsert(s.output, res); err != nil {
		return 0, err
	}
	return res.LeafIndex, nil
}

// Nullifier is the digest queued when value, appended at leafIndex, is spent
// by the transaction txHash.
func Nullifier(h hasher.Hasher, value [32]byte, leafIndex uint64, txHash [32]byte) ([32]byte, error) {
	index := hasher.Uint64Bytes(leafIndex)
	return h.Hashv(value[:], index[:], txHash[:])
}

// InsertNullifier queues the nullification of value at leafIndex.
//
// value itself is recorded in the input queue's bloom filter, so a second
// nullification of the same value fails with queue.ErrDuplicateValue while
// the filter is live. When the leaf is still pending in the output queue its
// slot is zeroed so the append chunk carries an empty leaf. proveByIndex
// requires the leaf to be pending.
func (s *StateTree) InsertNullifier(value [32]byte, leafIndex uint64, txHash [32]byte, proveByIndex bool) error {
	if leafIndex >= s.output.NextIndex() {
		return fmt.Errorf("%w: %d >= %d", ErrLeafIndexOutOfRange, leafIndex, s.output.NextIndex())
	}
	pending, err := s.output.ProveInclusionByIndex(leafIndex, value)
	if err != nil {
		return err
	}
	if proveByIndex && !pending {
		return fmt.Errorf("%w: leaf %d is not pending", queue.ErrInclusionProofByIndexFailed, leafIndex)
	}
	nullifier, err := Nullifier(s.h, value, leafIndex, txHash)
	if err != nil {
		return err
	}
	res, err := s.input.InsertIntoCurrentBatch(s.h, value, nullifier)
	if err != nil {
		return err
	}
	if pending {
		if err := s.output.ZeroOutLeaf(leafIndex, value, true); err != nil {
			return err
		}
	}
	return s.afterInsert(s.input, res)
}

// ApplyOutputChunk appends the next ready chunk of the output queue to the
// tree.
func (s *StateTree) ApplyOutputChunk(req AppendChunkRequest) (Event, error) {
	return s.applyChunk(s.output, CircuitAppend, req.NewRoot, req.Proof)
}

// ApplyInputChunk nullifies the next ready chunk of the input queue.
func (s *StateTree) ApplyInputChunk(req NullifyChunkRequest) (Event, error) {
	return s.applyChunk(s.input, CircuitNullify, req.NewRoot, req.Proof)
}

// OutputChunkLeaves returns the leaves the next ready output chunk writes,
// starting at NextIndex. Nullified pending leaves are zero.
func (s *StateTree) OutputChunkLeaves() ([][32]byte, error) {
	chunk, err := s.output.ReadyChunk()
	if err != nil {
		return nil, err
	}
	return s.output.ChunkValues(chunk)
}
