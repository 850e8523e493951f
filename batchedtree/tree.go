package batchedtree

import (
	"encoding/binary"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/checkpoint"
	"github.com/forestrie/go-batchedtree/hashchain"
	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/forestrie/go-batchedtree/queue"
	"github.com/forestrie/go-batchedtree/roothistory"
	"github.com/google/uuid"
)

// engine is the state shared by both tree variants: the header, the root
// history and the input (or address) queue.
type engine struct {
	region []byte
	params Params
	layout Layout
	opts   Options
	log    logger.Logger

	h     hasher.Hasher
	roots roothistory.History
	input *queue.Queue
}

// initEngine formats region for p. The caller pushes the initial root.
func initEngine(region []byte, p Params, nextIndex uint64, opts []Option) (*engine, error) {
	if p.TreeID == uuid.Nil {
		p.TreeID = uuid.New()
	}
	l, err := ComputeLayout(p)
	if err != nil {
		return nil, err
	}
	if uint64(len(region)) != l.Total {
		return nil, fmt.Errorf("%w: need %d have %d", ErrRegionSize, l.Total, len(region))
	}
	h, err := hasher.New(p.Hasher)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	clear(region)
	err = EncodeHeader(region, Header{
		TreeType:            p.TreeType,
		Hasher:              p.Hasher,
		Height:              p.Height,
		CanopyDepth:         p.CanopyDepth,
		RootHistoryCapacity: p.RootHistoryCapacity,
		NextIndex:           nextIndex,
		TreeID:              p.TreeID,
	})
	if err != nil {
		return nil, err
	}
	roots, err := roothistory.Init(l.rootHistory(region), p.RootHistoryCapacity)
	if err != nil {
		return nil, err
	}
	input, err := queue.Init(l.inputQueue(region), p.InputQueueParams(), 0)
	if err != nil {
		return nil, err
	}
	return newEngine(region, p, l, h, roots, input, opts), nil
}

// openEngine recovers the parameters of a formatted region and checks the
// region has exactly the size they imply.
func openEngine(region []byte, want TreeType, opts []Option) (*engine, *queue.Queue, error) {
	hdr, err := DecodeHeader(region)
	if err != nil {
		return nil, nil, err
	}
	if hdr.TreeType != want {
		return nil, nil, fmt.Errorf("%w: want %s have %s", ErrWrongTreeType, want, hdr.TreeType)
	}
	inputOff := HeaderBytes + roothistory.RegionBytes(hdr.RootHistoryCapacity)
	if uint64(len(region)) < inputOff {
		return nil, nil, fmt.Errorf("%w: need more than %d have %d", ErrRegionSize, inputOff, len(region))
	}
	input, err := queue.Open(region[inputOff:])
	if err != nil {
		return nil, nil, err
	}

	in := input.Params()
	p := Params{
		TreeType:            hdr.TreeType,
		TreeID:              hdr.TreeID,
		Hasher:              hdr.Hasher,
		Height:              hdr.Height,
		CanopyDepth:         hdr.CanopyDepth,
		RootHistoryCapacity: hdr.RootHistoryCapacity,
		InputBatchSize:      in.BatchSize,
		InputZkpBatchSize:   in.ZkpBatchSize,
		BloomFilterCapacity: in.BloomCapacity,
		BloomFilterNumIters: in.NumIters,
	}
	var output *queue.Queue
	if p.HasOutputQueue() {
		if output, err = queue.Open(region[inputOff+input.Layout().Total:]); err != nil {
			return nil, nil, err
		}
		p.OutputBatchSize = output.Params().BatchSize
		p.OutputZkpBatchSize = output.Params().ZkpBatchSize
	}
	if input.Kind() != p.InputQueueParams().Kind || (output != nil && output.Kind() != queue.KindOutput) {
		return nil, nil, fmt.Errorf("%w: queue kinds do not match a %s tree", queue.ErrCorruptHeader, p.TreeType)
	}

	l, err := ComputeLayout(p)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(region)) != l.Total {
		return nil, nil, fmt.Errorf("%w: need %d have %d", ErrRegionSize, l.Total, len(region))
	}
	roots, err := roothistory.Open(l.rootHistory(region))
	if err != nil {
		return nil, nil, err
	}
	if roots.Cap() != p.RootHistoryCapacity || roots.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: capacity %d length %d", roothistory.ErrCorruptHeader, roots.Cap(), roots.Len())
	}
	h, err := hasher.New(p.Hasher)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return newEngine(region, p, l, h, roots, input, opts), output, nil
}

func newEngine(
	region []byte, p Params, l Layout, h hasher.Hasher,
	roots roothistory.History, input *queue.Queue, opts []Option,
) *engine {
	o := NewOptions(opts...)
	return &engine{
		region: region,
		params: p,
		layout: l,
		opts:   o,
		log:    o.Log,
		h:      h,
		roots:  roots,
		input:  input,
	}
}

func (t *engine) debugf(format string, args ...any) {
	if t.log != nil {
		t.log.Debugf(format, args...)
	}
}

func (t *engine) infof(format string, args ...any) {
	if t.log != nil {
		t.log.Infof(format, args...)
	}
}

func (t *engine) Params() Params                   { return t.params }
func (t *engine) Layout() Layout                   { return t.layout }
func (t *engine) Bytes() []byte                    { return t.region }
func (t *engine) Hasher() hasher.Hasher            { return t.h }
func (t *engine) Height() uint8                    { return t.params.Height }
func (t *engine) CanopyDepth() uint8               { return t.params.CanopyDepth }
func (t *engine) InputQueue() *queue.Queue         { return t.input }
func (t *engine) RootHistory() roothistory.History { return t.roots }

func (t *engine) TreeID() uuid.UUID {
	var id uuid.UUID
	copy(id[:], t.region[hdrTreeIDFirst:hdrTreeIDEnd])
	return id
}

// SequenceNumber counts the chunks applied to the tree.
func (t *engine) SequenceNumber() uint64 {
	return binary.BigEndian.Uint64(t.region[hdrSeqFirst:])
}

// NextIndex is the first leaf index not covered by the current root.
func (t *engine) NextIndex() uint64 {
	return binary.BigEndian.Uint64(t.region[hdrNextIndexFirst:])
}

func (t *engine) setSequenceNumber(v uint64) { binary.BigEndian.PutUint64(t.region[hdrSeqFirst:], v) }
func (t *engine) setNextIndex(v uint64)      { binary.BigEndian.PutUint64(t.region[hdrNextIndexFirst:], v) }

// Root returns the current root. The history is never empty once the region
// has been formatted and the current root is never invalidated.
func (t *engine) Root() [32]byte {
	root, _ := t.roots.Last()
	return root
}

// RootIndex is the root history slot of the current root.
func (t *engine) RootIndex() uint32 { return t.roots.LastIndex() }

// CheckNonInclusion fails with queue.ErrDuplicateValue if value may be
// pending in a batch whose filter has not been wiped.
func (t *engine) CheckNonInclusion(value [32]byte) error {
	return t.input.CheckNonInclusion(value)
}

// State snapshots the tree for signing as a checkpoint.
func (t *engine) State() checkpoint.TreeState {
	id := t.TreeID()
	root := t.Root()
	return checkpoint.TreeState{
		TreeID:         id[:],
		Root:           root[:],
		Timestamp:      t.opts.Clock().UnixMilli(),
		RootIndex:      t.RootIndex(),
		SequenceNumber: t.SequenceNumber(),
		NextIndex:      t.NextIndex(),
	}
}

// pendingElements counts the elements held by q that no applied chunk covers.
func pendingElements(q *queue.Queue) (uint64, error) {
	var n uint64
	for i := 0; i < queue.NumBatches; i++ {
		b, err := q.Batch(i)
		if err != nil {
			return 0, err
		}
		if b.State == batch.StateInserted {
			continue
		}
		n += b.NumInsertedElements - b.NumElementsInsertedIntoTree()
	}
	return n, nil
}

// applyChunk applies the ready chunk of q's next full batch with newRoot.
//
// Nothing in the region changes until the proof has been accepted. Then the
// chunk is marked, the root is pushed, the header counters move and, for
// queues with bloom filters, the previous batch's filter may be wiped.
func (t *engine) applyChunk(q *queue.Queue, circuit Circuit, newRoot [32]byte, proof CompressedProof) (Event, error) {
	chunk, err := q.ReadyChunk()
	if err != nil {
		return Event{}, fmt.Errorf("%s queue: %w", q.Kind(), err)
	}
	if roothistory.IsSentinel(newRoot) {
		return Event{}, ErrInvalidRoot
	}

	seq := t.SequenceNumber()
	nextIndex := t.NextIndex()
	pi := PublicInputs{
		Circuit:         circuit,
		OldRoot:         t.Root(),
		NewRoot:         newRoot,
		LeavesHashchain: chunk.Hashchain,
		ZkpBatchSize:    chunk.Size,
	}
	values := [][32]byte{pi.OldRoot, pi.NewRoot, pi.LeavesHashchain}
	if circuit != CircuitNullify {
		pi.StartIndex = nextIndex
		values = append(values, hasher.Uint64Bytes(nextIndex))
	}
	if pi.Hash, err = hashchain.Of(t.h, values...); err != nil {
		return Event{}, err
	}
	if err := t.opts.Verifier.Verify(pi, proof); err != nil {
		return Event{}, fmt.Errorf("%w: %s chunk %d of batch %d: %w",
			ErrProofVerificationFailed, circuit, chunk.ZkpIndex, chunk.BatchIndex, err)
	}

	rootIndex := t.roots.NextSlot()
	state, rotated, err := q.MarkChunkInserted(seq+1, rootIndex, t.params.RootHistoryCapacity)
	if err != nil {
		return Event{}, err
	}
	t.roots.Push(newRoot)
	t.setSequenceNumber(seq + 1)
	newNextIndex := nextIndex
	if circuit != CircuitNullify {
		newNextIndex = nextIndex + chunk.Size
		t.setNextIndex(newNextIndex)
	}

	id := t.TreeID()
	e := Event{
		Kind:           eventKind(circuit),
		TreeID:         id[:],
		BatchIndex:     uint64(chunk.BatchIndex),
		ZkpBatchIndex:  chunk.ZkpIndex,
		ZkpBatchSize:   chunk.Size,
		OldNextIndex:   nextIndex,
		NewNextIndex:   newNextIndex,
		NewRoot:        newRoot[:],
		RootIndex:      rootIndex,
		SequenceNumber: seq + 1,
		BatchSize:      q.Params().BatchSize,
	}
	t.debugf("%s: applied chunk %d of batch %d, root index %d, seq %d",
		circuit, chunk.ZkpIndex, chunk.BatchIndex, rootIndex, seq+1)
	if state == batch.StateInserted {
		t.debugf("%s queue: batch %d inserted", q.Kind(), chunk.BatchIndex)
	}
	if rotated != nil {
		n, err := t.invalidate(q, rotated)
		if err != nil {
			return Event{}, err
		}
		e.InvalidatedRoots += n
	}

	if q.Kind().HasBloomFilters() {
		n, err := t.wipePrevious(q)
		if err != nil {
			return Event{}, err
		}
		e.InvalidatedRoots += n
	}
	return e, nil
}

func eventKind(c Circuit) EventKind {
	switch c {
	case CircuitAppend:
		return EventBatchAppend
	case CircuitNullify:
		return EventBatchNullify
	case CircuitAddressAppend:
		return EventBatchAddressAppend
	default:
		return EventKindUnknown
	}
}

// afterInsert logs the insert's effects and invalidates the roots a rotation
// or a half full batch exposes.
func (t *engine) afterInsert(q *queue.Queue, res queue.InsertResult) error {
	if res.Rotated {
		t.debugf("%s queue: batch %d rotated to fill", q.Kind(), q.CurrentlyProcessingBatchIndex())
	}
	if res.Wipe != nil {
		if _, err := t.invalidate(q, res.Wipe); err != nil {
			return err
		}
	}
	if res.BecameFull {
		t.debugf("%s queue: batch %d full", q.Kind(), res.BatchIndex)
	}
	if !q.Kind().HasBloomFilters() {
		return nil
	}
	_, err := t.wipePrevious(q)
	return err
}

func (t *engine) wipePrevious(q *queue.Queue) (uint64, error) {
	w, err := q.WipePreviousBatchBloomFilter()
	if err != nil || w == nil {
		return 0, err
	}
	return t.invalidate(q, w)
}

// invalidate zeroes the roots older than the wiped batch's last root. Once
// the tree's sequence number reaches the batch's recorded sequence number
// every such root has already been overwritten.
func (t *engine) invalidate(q *queue.Queue, w *queue.Wipe) (uint64, error) {
	t.debugf("%s queue: wiped bloom filter of batch %d", q.Kind(), w.BatchIndex)
	if w.SequenceNumber <= t.SequenceNumber() {
		return 0, nil
	}
	n, err := t.roots.InvalidateBefore(w.RootIndex)
	if err != nil {
		return 0, err
	}
	t.infof("%s queue: invalidated %d roots before root index %d", q.Kind(), n, w.RootIndex)
	return uint64(n), nil
}
