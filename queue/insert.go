package queue

import (
	"fmt"

	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/bloom"
	"github.com/forestrie/go-batchedtree/hashchain"
	"github.com/forestrie/go-batchedtree/hasher"
)

// pendingInsert is the outcome of the checks common to every insert. Nothing
// in the region has been written when it is returned.
type pendingInsert struct {
	index    int
	b        batch.Batch
	chain    hashchain.Store
	startNew bool
	digest   [32]byte
	result   InsertResult
}

// prepareInsert runs the state and hash chain steps of an insert into the
// currently processing batch without mutating the region.
func (q *Queue) prepareInsert(h hasher.Hasher, leafValue [32]byte) (pendingInsert, error) {
	cur := q.CurrentlyProcessingBatchIndex()
	b, err := q.Batch(cur)
	if err != nil {
		return pendingInsert{}, err
	}
	if b.State != batch.StateFill {
		return pendingInsert{}, fmt.Errorf("%w: batch %d is %s", batch.ErrBatchNotReady, cur, b.State)
	}
	pi := pendingInsert{index: cur, b: b, result: InsertResult{BatchIndex: cur}}
	if pi.chain, err = q.HashchainStore(cur); err != nil {
		return pendingInsert{}, err
	}
	pi.startNew = b.StartsNewZkp()
	if pi.digest, err = hashchain.Next(h, pi.chain, pi.startNew, leafValue); err != nil {
		return pendingInsert{}, err
	}
	return pi, nil
}

// commit publishes a prepared insert. When the batch becomes Full the other
// batch takes over, and is rotated first if it is Inserted.
func (q *Queue) commit(pi *pendingInsert) error {
	if err := hashchain.Commit(pi.chain, pi.startNew, pi.digest); err != nil {
		return err
	}
	if err := pi.b.IncrementInserted(); err != nil {
		return err
	}
	if err := q.putBatch(pi.index, pi.b); err != nil {
		return err
	}
	if pi.b.State != batch.StateFull {
		return nil
	}
	pi.result.BecameFull = true
	sib := other(pi.index)
	q.setCurrentlyProcessing(sib)
	sb, err := q.Batch(sib)
	if err != nil {
		return err
	}
	if sb.State != batch.StateInserted {
		return nil
	}
	pi.result.Rotated = true
	pi.result.Wipe, err = q.rotate(sib)
	return err
}

// rotate returns the Inserted batch i to Fill, emptying its hash chain and
// value stores. A filter the half full trigger has not wiped yet is cleared
// here and reported.
func (q *Queue) rotate(i int) (*Wipe, error) {
	b, err := q.Batch(i)
	if err != nil {
		return nil, err
	}
	var w *Wipe
	if q.params.Kind.HasBloomFilters() && !b.BloomZeroed {
		if err := bloom.ClearV1(q.bloomRegion(i)); err != nil {
			return nil, err
		}
		w = &Wipe{BatchIndex: i, SequenceNumber: b.SequenceNumber, RootIndex: b.RootIndex}
	}
	if err := b.AdvanceToFill(q.NextIndex()); err != nil {
		return nil, fmt.Errorf("batch %d: %w", i, err)
	}
	chain, err := q.HashchainStore(i)
	if err != nil {
		return nil, err
	}
	chain.Clear()
	if q.params.Kind.HasValueStores() {
		values, err := q.valueStore(i)
		if err != nil {
			return nil, err
		}
		values.Clear()
	}
	return w, q.putBatch(i, b)
}

// InsertIntoCurrentBatch adds an element to the active batch of an input or
// address queue. bloomValue is checked for uniqueness and recorded in the
// batch's filter, leafValue is folded into the batch's hash chain.
//
// The value must not be present in the active batch's filter nor in the
// filter of the other batch unless that filter has been wiped. The region is
// unchanged if any check fails.
func (q *Queue) InsertIntoCurrentBatch(h hasher.Hasher, bloomValue, leafValue [32]byte) (InsertResult, error) {
	if !q.params.Kind.HasBloomFilters() {
		return InsertResult{}, fmt.Errorf("%w: insert into %s queue", ErrWrongKind, q.params.Kind)
	}
	pi, err := q.prepareInsert(h, leafValue)
	if err != nil {
		return InsertResult{}, err
	}

	region := q.bloomRegion(pi.index)
	found, err := bloom.MaybeContainsV1(region, bloomValue[:])
	if err != nil {
		return InsertResult{}, err
	}
	if found {
		return InsertResult{}, fmt.Errorf("%w: batch %d", ErrDuplicateValue, pi.index)
	}
	ok, err := bloom.CanInsertV1(region)
	if err != nil {
		return InsertResult{}, err
	}
	if !ok {
		return InsertResult{}, fmt.Errorf("%w: batch %d", bloom.ErrFull, pi.index)
	}
	sib := other(pi.index)
	sb, err := q.Batch(sib)
	if err != nil {
		return InsertResult{}, err
	}
	if !sb.BloomZeroed {
		found, err := bloom.MaybeContainsV1(q.bloomRegion(sib), bloomValue[:])
		if err != nil {
			return InsertResult{}, err
		}
		if found {
			return InsertResult{}, fmt.Errorf("%w: batch %d", ErrDuplicateValue, sib)
		}
	}

	if err := bloom.InsertV1(region, bloomValue[:]); err != nil {
		return InsertResult{}, err
	}
	if err := q.commit(&pi); err != nil {
		return InsertResult{}, err
	}
	return pi.result, nil
}

// Append adds value to the active batch of an output queue and reserves the
// next leaf index for it.
func (q *Queue) Append(h hasher.Hasher, value [32]byte) (InsertResult, error) {
	if !q.params.Kind.HasValueStores() {
		return InsertResult{}, fmt.Errorf("%w: append to %s queue", ErrWrongKind, q.params.Kind)
	}
	leafIndex := q.NextIndex()
	pi, err := q.prepareInsert(h, value)
	if err != nil {
		return InsertResult{}, err
	}
	if pi.b.NumInsertedElements == 0 {
		pi.b.StartIndex = leafIndex
	}
	values, err := q.valueStore(pi.index)
	if err != nil {
		return InsertResult{}, err
	}
	if err := values.Push(value); err != nil {
		return InsertResult{}, err
	}
	q.setNextIndex(leafIndex + 1)
	if err := q.commit(&pi); err != nil {
		return InsertResult{}, err
	}
	pi.result.LeafIndex = leafIndex
	return pi.result, nil
}

// WipePreviousBatchBloomFilter clears the filter of the batch inserted before
// the next full batch once the currently processing batch is at least half
// full. The wiped batch's recorded sequence number and root index are
// returned so the caller can invalidate the roots that were produced while
// the filter was live. A nil Wipe means nothing was cleared.
func (q *Queue) WipePreviousBatchBloomFilter() (*Wipe, error) {
	if !q.params.Kind.HasBloomFilters() {
		return nil, fmt.Errorf("%w: wipe on %s queue", ErrWrongKind, q.params.Kind)
	}
	cur := q.CurrentlyProcessingBatchIndex()
	prev := other(q.NextFullBatchIndex())
	if prev == cur {
		return nil, nil
	}
	pb, err := q.Batch(prev)
	if err != nil {
		return nil, err
	}
	cb, err := q.Batch(cur)
	if err != nil {
		return nil, err
	}
	if pb.State != batch.StateInserted || pb.BloomZeroed || cb.NumInsertedElements < q.params.BatchSize/2 {
		return nil, nil
	}
	if err := bloom.ClearV1(q.bloomRegion(prev)); err != nil {
		return nil, err
	}
	pb.BloomZeroed = true
	if err := q.putBatch(prev, pb); err != nil {
		return nil, err
	}
	return &Wipe{BatchIndex: prev, SequenceNumber: pb.SequenceNumber, RootIndex: pb.RootIndex}, nil
}
