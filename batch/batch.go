package batch

import "fmt"

// Batch is one of the two double buffered slots of a queue.
//
// Elements are appended while the batch is in StateFill. Once BatchSize
// elements are held the batch is Full and its chunks, each ZkpBatchSize
// elements long, are applied to the tree one proof at a time. The last chunk
// moves the batch to Inserted, and the owning queue returns it to Fill as soon
// as it is the active batch again.
type Batch struct {
	State       State
	BloomZeroed bool
	// RootIndex is the root history slot written by the final chunk.
	RootIndex           uint32
	NumInsertedElements uint64
	NumInsertedZkps     uint64
	// SequenceNumber is the tree sequence number, plus the root history
	// capacity, recorded when the batch became Inserted. Roots are only
	// invalidated when the batch's filter is wiped before the tree sequence
	// number reaches it.
	SequenceNumber uint64

	BatchSize    uint64
	ZkpBatchSize uint64
	// StartIndex is the leaf index of element 0 (output queues only).
	StartIndex    uint64
	BloomCapacity uint64
	NumIters      uint64
}

// New returns an empty batch in StateFill.
func New(batchSize, zkpBatchSize, bloomCapacity, numIters, startIndex uint64) Batch {
	return Batch{
		State:         StateFill,
		BatchSize:     batchSize,
		ZkpBatchSize:  zkpBatchSize,
		StartIndex:    startIndex,
		BloomCapacity: bloomCapacity,
		NumIters:      numIters,
	}
}

func (b *Batch) NumZkpBatches() uint64 {
	if b.ZkpBatchSize == 0 {
		return 0
	}
	return b.BatchSize / b.ZkpBatchSize
}

// CurrentZkpBatchIndex is the chunk new elements are added to.
func (b *Batch) CurrentZkpBatchIndex() uint64 {
	if b.ZkpBatchSize == 0 {
		return 0
	}
	return b.NumInsertedElements / b.ZkpBatchSize
}

// NumInsertedInCurrentZkp is the fill level of the current chunk.
func (b *Batch) NumInsertedInCurrentZkp() uint64 {
	if b.ZkpBatchSize == 0 {
		return 0
	}
	return b.NumInsertedElements % b.ZkpBatchSize
}

// StartsNewZkp reports whether the next element opens a new chunk and so a
// new hash chain.
func (b *Batch) StartsNewZkp() bool {
	return b.NumInsertedInCurrentZkp() == 0
}

// NumReadyZkpBatches is the number of complete chunks not yet applied.
func (b *Batch) NumReadyZkpBatches() uint64 {
	cur := b.CurrentZkpBatchIndex()
	if cur <= b.NumInsertedZkps {
		return 0
	}
	return cur - b.NumInsertedZkps
}

// FirstReadyZkpBatch returns the index of the next chunk to apply.
//
// Chunks are only applied once the batch is Full. An Inserted batch fails
// with both ErrBatchNotReady and ErrBatchAlreadyInserted.
func (b *Batch) FirstReadyZkpBatch() (uint64, error) {
	switch {
	case b.State == StateInserted:
		return 0, fmt.Errorf("%w: %w", ErrBatchNotReady, ErrBatchAlreadyInserted)
	case b.State != StateFull:
		return 0, fmt.Errorf("%w: state %s", ErrBatchNotReady, b.State)
	case b.NumReadyZkpBatches() == 0:
		return 0, ErrBatchNotReady
	}
	return b.NumInsertedZkps, nil
}

// NumElementsInsertedIntoTree counts the elements covered by applied chunks.
func (b *Batch) NumElementsInsertedIntoTree() uint64 {
	return b.NumInsertedZkps * b.ZkpBatchSize
}

func (b *Batch) IsFull() bool {
	return b.NumInsertedElements == b.BatchSize
}

// IncrementInserted accounts for one more element, moving the batch to Full
// when it reaches BatchSize.
func (b *Batch) IncrementInserted() error {
	if b.State != StateFill {
		return fmt.Errorf("%w: state %s", ErrBatchNotReady, b.State)
	}
	b.NumInsertedElements++
	if b.IsFull() {
		b.State = StateFull
	}
	return nil
}

// MarkAsInserted records that the next ready chunk has been applied.
//
// seq is the tree sequence number after the application and rootIndex the
// root history slot of the new root. When the final chunk is applied the
// batch moves to Inserted and records seq+rootHistoryCapacity and rootIndex.
func (b *Batch) MarkAsInserted(seq uint64, rootIndex uint32, rootHistoryCapacity uint32) (State, error) {
	if _, err := b.FirstReadyZkpBatch(); err != nil {
		return b.State, err
	}
	b.NumInsertedZkps++
	if b.NumInsertedZkps == b.NumZkpBatches() {
		b.State = StateInserted
		b.SequenceNumber = seq + uint64(rootHistoryCapacity)
		b.RootIndex = rootIndex
	}
	return b.State, nil
}

// AdvanceToFill resets an Inserted batch for reuse starting at startIndex.
func (b *Batch) AdvanceToFill(startIndex uint64) error {
	if b.State != StateInserted {
		return fmt.Errorf("%w: state %s, expected %s", ErrBatchNotReady, b.State, StateInserted)
	}
	b.State = StateFill
	b.BloomZeroed = false
	b.SequenceNumber = 0
	b.RootIndex = 0
	b.NumInsertedZkps = 0
	b.NumInsertedElements = 0
	b.StartIndex = startIndex
	return nil
}

// LeafIndexCouldExist reports whether leafIndex falls in the batch's leaf
// range. It says nothing about whether the element was appended yet.
func (b *Batch) LeafIndexCouldExist(leafIndex uint64) bool {
	return leafIndex >= b.StartIndex && leafIndex < b.StartIndex+b.BatchSize
}

// ValueIndex maps a leaf index to its slot in the batch's value store.
func (b *Batch) ValueIndex(leafIndex uint64) (uint64, error) {
	if !b.LeafIndexCouldExist(leafIndex) {
		return 0, fmt.Errorf("%w: leaf %d, batch start %d", ErrLeafIndexNotInBatch, leafIndex, b.StartIndex)
	}
	return leafIndex - b.StartIndex, nil
}

// IsPending reports whether leafIndex was appended to the batch but is not
// yet covered by an applied chunk.
func (b *Batch) IsPending(leafIndex uint64) bool {
	lo := b.StartIndex + b.NumElementsInsertedIntoTree()
	hi := b.StartIndex + b.NumInsertedElements
	return leafIndex >= lo && leafIndex < hi
}
