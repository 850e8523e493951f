package queue

import (
	"errors"
	"fmt"

	"github.com/forestrie/go-batchedtree/batch"
)

// ReadyChunk returns the next chunk of the next full batch.
//
// It fails with batch.ErrBatchNotReady when that batch has no complete chunk
// left to apply.
func (q *Queue) ReadyChunk() (Chunk, error) {
	i := q.NextFullBatchIndex()
	b, err := q.Batch(i)
	if err != nil {
		return Chunk{}, err
	}
	zkpIndex, err := b.FirstReadyZkpBatch()
	if err != nil {
		return Chunk{}, fmt.Errorf("batch %d: %w", i, err)
	}
	chain, err := q.HashchainStore(i)
	if err != nil {
		return Chunk{}, err
	}
	digest, err := chain.Get(zkpIndex)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{
		BatchIndex: i,
		ZkpIndex:   zkpIndex,
		Size:       b.ZkpBatchSize,
		Hashchain:  digest,
		StartIndex: b.StartIndex + zkpIndex*b.ZkpBatchSize,
	}, nil
}

// MarkChunkInserted records that the ready chunk of the next full batch was
// applied, producing the root at rootIndex and tree sequence number seq. When
// the batch's last chunk is applied the next full batch index moves to the
// other batch, and if the inserted batch is also the currently processing one
// it is rotated back to Fill. A non nil Wipe reports the filter the rotation
// cleared.
func (q *Queue) MarkChunkInserted(seq uint64, rootIndex uint32, rootHistoryCapacity uint32) (batch.State, *Wipe, error) {
	i := q.NextFullBatchIndex()
	b, err := q.Batch(i)
	if err != nil {
		return 0, nil, err
	}
	state, err := b.MarkAsInserted(seq, rootIndex, rootHistoryCapacity)
	if err != nil {
		return state, nil, fmt.Errorf("batch %d: %w", i, err)
	}
	if err := q.putBatch(i, b); err != nil {
		return state, nil, err
	}
	if state != batch.StateInserted {
		return state, nil, nil
	}
	q.setNextFull(other(i))
	if q.CurrentlyProcessingBatchIndex() != i {
		return state, nil, nil
	}
	w, err := q.rotate(i)
	return state, w, err
}

// ChunkValues returns the values appended in chunk c of an output queue.
func (q *Queue) ChunkValues(c Chunk) ([][32]byte, error) {
	values, err := q.valueStore(c.BatchIndex)
	if err != nil {
		return nil, err
	}
	out := make([][32]byte, 0, c.Size)
	for k := uint64(0); k < c.Size; k++ {
		v, err := values.Get(c.ZkpIndex*c.Size + k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// pendingSlot finds the batch and value slot of a leaf that was appended but
// is not yet covered by an applied chunk.
func (q *Queue) pendingSlot(leafIndex uint64) (int, uint64, bool, error) {
	for i := 0; i < NumBatches; i++ {
		b, err := q.Batch(i)
		if err != nil {
			return 0, 0, false, err
		}
		if !b.IsPending(leafIndex) {
			continue
		}
		slot, err := b.ValueIndex(leafIndex)
		if err != nil {
			return 0, 0, false, err
		}
		return i, slot, true, nil
	}
	return 0, 0, false, nil
}

// ValueAt returns the value queued for leafIndex while it is pending.
func (q *Queue) ValueAt(leafIndex uint64) ([32]byte, error) {
	if !q.params.Kind.HasValueStores() {
		return [32]byte{}, fmt.Errorf("%w: lookup in %s queue", ErrWrongKind, q.params.Kind)
	}
	i, slot, ok, err := q.pendingSlot(leafIndex)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %d", ErrLeafIndexNotInQueue, leafIndex)
	}
	values, err := q.valueStore(i)
	if err != nil {
		return [32]byte{}, err
	}
	return values.Get(slot)
}

// ProveInclusionByIndex reports whether leafIndex is pending in the queue.
// A pending leaf holding a different value is an error.
func (q *Queue) ProveInclusionByIndex(leafIndex uint64, value [32]byte) (bool, error) {
	v, err := q.ValueAt(leafIndex)
	if err != nil {
		if errors.Is(err, ErrLeafIndexNotInQueue) {
			return false, nil
		}
		return false, err
	}
	if v != value {
		return false, fmt.Errorf("%w: leaf %d", ErrInclusionProofByIndexFailed, leafIndex)
	}
	return true, nil
}

// ZeroOutLeaf consumes the pending value at leafIndex. A leaf that is not
// pending is ignored unless proveByIndex is set, in which case it is an
// error.
func (q *Queue) ZeroOutLeaf(leafIndex uint64, value [32]byte, proveByIndex bool) error {
	found, err := q.ProveInclusionByIndex(leafIndex, value)
	if err != nil {
		return err
	}
	if !found {
		if proveByIndex {
			return fmt.Errorf("%w: leaf %d is not pending", ErrInclusionProofByIndexFailed, leafIndex)
		}
		return nil
	}
	i, slot, _, err := q.pendingSlot(leafIndex)
	if err != nil {
		return err
	}
	values, err := q.valueStore(i)
	if err != nil {
		return err
	}
	return values.Set(slot, [32]byte{})
}
