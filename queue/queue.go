package queue

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/bloom"
	"github.com/forestrie/go-batchedtree/hashchain"
)

// Queue header layout, big endian.
//
// .        | currently processing | next full | kind | num batches | reserved | next index |
// .        | 0 - 7                | 8 - 15    | 16   | 17          | 18 - 23  | 24 - 31    |
const (
	hdrProcessingFirst = 0
	hdrNextFullFirst   = 8
	hdrKindByte        = 16
	hdrNumBatchesByte  = 17
	hdrNextIndexFirst  = 24
)

var (
	ErrBadRegionSize               = errors.New("queue: region is too small for its parameters")
	ErrCorruptHeader               = errors.New("queue: header is inconsistent")
	ErrInvalidBatchIndex           = errors.New("queue: batch index is out of range")
	ErrWrongKind                   = errors.New("queue: operation is not supported by this queue kind")
	ErrDuplicateValue              = errors.New("queue: value is already pending")
	ErrInclusionProofByIndexFailed = errors.New("queue: value does not match the queued value at the leaf index")
	ErrLeafIndexNotInQueue         = errors.New("queue: leaf index is not held")
)

// Queue is a view over a queue region holding exactly two batches.
type Queue struct {
	region []byte
	params Params
	layout Layout
}

// Wipe reports a bloom filter that was cleared while the roots produced
// during its batch's lifetime may still be in the root history.
type Wipe struct {
	BatchIndex     int
	SequenceNumber uint64
	RootIndex      uint32
}

// InsertResult describes the effects of a successful insert.
type InsertResult struct {
	BatchIndex int
	// LeafIndex is the reserved leaf index (output queues).
	LeafIndex uint64
	// Rotated is set when the insert filled the batch and the other batch,
	// which was Inserted, was returned to Fill.
	Rotated bool
	// Wipe is set when the rotation cleared a filter that had not yet been
	// wiped.
	Wipe *Wipe
	// BecameFull is set when the insert filled the batch.
	BecameFull bool
}

// Chunk is the next proof sized slice of the full batch.
type Chunk struct {
	BatchIndex int
	ZkpIndex   uint64
	Size       uint64
	Hashchain  [32]byte
	// StartIndex is the leaf index of the chunk's first element (output
	// queues).
	StartIndex uint64
}

// Init formats region as an empty queue. For output queues startIndex is the
// leaf index the first append reserves.
func Init(region []byte, p Params, startIndex uint64) (*Queue, error) {
	l, err := ComputeLayout(p)
	if err != nil {
		return nil, err
	}
	if uint64(len(region)) < l.Total {
		return nil, fmt.Errorf("%w: need %d have %d", ErrBadRegionSize, l.Total, len(region))
	}
	region = region[:l.Total]
	clear(region)

	q := &Queue{region: region, params: p, layout: l}
	region[hdrKindByte] = uint8(p.Kind)
	region[hdrNumBatchesByte] = NumBatches
	q.setNextIndex(startIndex)

	for i := 0; i < NumBatches; i++ {
		var start uint64
		if p.Kind.HasValueStores() {
			start = startIndex + uint64(i)*p.BatchSize
		}
		b := batch.New(p.BatchSize, p.ZkpBatchSize, p.BloomCapacity, p.NumIters, start)
		if err := q.putBatch(i, b); err != nil {
			return nil, err
		}
		if p.Kind.HasBloomFilters() {
			if err := bloom.InitV1(q.bloomRegion(i), uint32(p.BloomCapacity), uint8(p.NumIters)); err != nil {
				return nil, err
			}
		}
		if _, err := hashchain.InitStore(q.hashchainRegion(i), p.NumZkpBatches()); err != nil {
			return nil, err
		}
		if p.Kind.HasValueStores() {
			if _, err := hashchain.InitStore(q.valuesRegion(i), p.BatchSize); err != nil {
				return nil, err
			}
		}
	}
	return q, nil
}

// Open returns a view over a region formatted by Init. The parameters are
// recovered from the header and the first batch record.
func Open(region []byte) (*Queue, error) {
	if len(region) < HeaderBytes+NumBatches*batch.RecordBytes {
		return nil, ErrBadRegionSize
	}
	if region[hdrNumBatchesByte] != NumBatches {
		return nil, fmt.Errorf("%w: %d batches", ErrCorruptHeader, region[hdrNumBatchesByte])
	}
	b0, err := batch.Decode(region[HeaderBytes : HeaderBytes+batch.RecordBytes])
	if err != nil {
		return nil, err
	}
	p := Params{
		Kind:          Kind(region[hdrKindByte]),
		BatchSize:     b0.BatchSize,
		ZkpBatchSize:  b0.ZkpBatchSize,
		BloomCapacity: b0.BloomCapacity,
		NumIters:      b0.NumIters,
	}
	l, err := ComputeLayout(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	if uint64(len(region)) < l.Total {
		return nil, fmt.Errorf("%w: need %d have %d", ErrBadRegionSize, l.Total, len(region))
	}
	q := &Queue{region: region[:l.Total], params: p, layout: l}
	if q.getU64(hdrProcessingFirst) >= NumBatches || q.getU64(hdrNextFullFirst) >= NumBatches {
		return nil, fmt.Errorf("%w: batch index out of range", ErrCorruptHeader)
	}
	return q, nil
}

func (q *Queue) Kind() Kind        { return q.params.Kind }
func (q *Queue) Params() Params    { return q.params }
func (q *Queue) Layout() Layout    { return q.layout }
func (q *Queue) Bytes() []byte     { return q.region }
func (q *Queue) NextIndex() uint64 { return q.getU64(hdrNextIndexFirst) }

// CurrentlyProcessingBatchIndex is the batch accepting new inserts.
func (q *Queue) CurrentlyProcessingBatchIndex() int {
	return int(q.getU64(hdrProcessingFirst))
}

// NextFullBatchIndex is the batch whose chunks are applied next.
func (q *Queue) NextFullBatchIndex() int {
	return int(q.getU64(hdrNextFullFirst))
}

func (q *Queue) getU64(first int) uint64 {
	return binary.BigEndian.Uint64(q.region[first : first+8])
}

func (q *Queue) putU64(first int, v uint64) {
	binary.BigEndian.PutUint64(q.region[first:first+8], v)
}

func (q *Queue) setNextIndex(v uint64)        { q.putU64(hdrNextIndexFirst, v) }
func (q *Queue) setCurrentlyProcessing(i int) { q.putU64(hdrProcessingFirst, uint64(i)) }
func (q *Queue) setNextFull(i int)            { q.putU64(hdrNextFullFirst, uint64(i)) }
func other(i int) int                         { return (i + 1) % NumBatches }

func (q *Queue) recordRegion(i int) []byte {
	off := q.layout.BatchesOff + uint64(i)*batch.RecordBytes
	return q.region[off : off+batch.RecordBytes]
}

func (q *Queue) bloomRegion(i int) []byte {
	off := q.layout.BloomOff[i]
	return q.region[off : off+q.layout.BloomBytes]
}

func (q *Queue) hashchainRegion(i int) []byte {
	off := q.layout.HashchainOff[i]
	return q.region[off : off+q.layout.HashchainBytes]
}

func (q *Queue) valuesRegion(i int) []byte {
	off := q.layout.ValuesOff[i]
	return q.region[off : off+q.layout.ValuesBytes]
}

func checkIndex(i int) error {
	if i < 0 || i >= NumBatches {
		return fmt.Errorf("%w: %d", ErrInvalidBatchIndex, i)
	}
	return nil
}

// Batch decodes the record of batch i.
func (q *Queue) Batch(i int) (batch.Batch, error) {
	if err := checkIndex(i); err != nil {
		return batch.Batch{}, err
	}
	return batch.Decode(q.recordRegion(i))
}

func (q *Queue) putBatch(i int, b batch.Batch) error {
	return b.Encode(q.recordRegion(i))
}

// HashchainStore returns the chunk digests of batch i.
func (q *Queue) HashchainStore(i int) (hashchain.Store, error) {
	if err := checkIndex(i); err != nil {
		return hashchain.Store{}, err
	}
	return hashchain.OpenStore(q.hashchainRegion(i))
}

func (q *Queue) valueStore(i int) (hashchain.Store, error) {
	if !q.params.Kind.HasValueStores() {
		return hashchain.Store{}, fmt.Errorf("%w: %s queue has no value stores", ErrWrongKind, q.params.Kind)
	}
	if err := checkIndex(i); err != nil {
		return hashchain.Store{}, err
	}
	return hashchain.OpenStore(q.valuesRegion(i))
}

// MaybeContains reports whether the filter of batch i may hold value.
func (q *Queue) MaybeContains(i int, value [32]byte) (bool, error) {
	if !q.params.Kind.HasBloomFilters() {
		return false, fmt.Errorf("%w: %s queue has no bloom filters", ErrWrongKind, q.params.Kind)
	}
	if err := checkIndex(i); err != nil {
		return false, err
	}
	return bloom.MaybeContainsV1(q.bloomRegion(i), value[:])
}

// CheckNonInclusion fails with ErrDuplicateValue if any filter that has not
// been wiped may hold value.
func (q *Queue) CheckNonInclusion(value [32]byte) error {
	for i := 0; i < NumBatches; i++ {
		b, err := q.Batch(i)
		if err != nil {
			return err
		}
		if b.BloomZeroed {
			continue
		}
		found, err := q.MaybeContains(i, value)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: batch %d", ErrDuplicateValue, i)
		}
	}
	return nil
}
