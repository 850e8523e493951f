package queue

import (
	"bytes"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/bloom"
	"github.com/forestrie/go-batchedtree/hashchain"
	"github.com/forestrie/go-batchedtree/hasher"
)

func testParams(kind Kind) Params {
	p := Params{Kind: kind, BatchSize: 4, ZkpBatchSize: 2}
	if kind.HasBloomFilters() {
		p.BloomCapacity = 2048
		p.NumIters = 3
	}
	return p
}

func newQueue(t *testing.T, p Params, startIndex uint64) *Queue {
	t.Helper()
	size, err := RegionBytes(p)
	require.NoError(t, err)
	q, err := Init(make([]byte, size), p, startIndex)
	require.NoError(t, err)
	return q
}

func value(i uint64) [32]byte {
	v := hasher.Uint64Bytes(i)
	v[0] = 0xAA
	return v
}

func snapshot(q *Queue) []byte {
	return bytes.Clone(q.Bytes())
}

func insertN(t *testing.T, q *Queue, h hasher.Hasher, from, n uint64) {
	t.Helper()
	for i := from; i < from+n; i++ {
		_, err := q.InsertIntoCurrentBatch(h, value(i), value(i))
		require.NoError(t, err, "value %d", i)
	}
}

// applyAll marks every ready chunk of the next full batch inserted.
func applyAll(t *testing.T, q *Queue, seq *uint64, rootIndex *uint32) {
	t.Helper()
	for {
		_, err := q.ReadyChunk()
		if err != nil {
			return
		}
		*seq++
		*rootIndex++
		_, _, err = q.MarkChunkInserted(*seq, *rootIndex, 10)
		require.NoError(t, err)
		requireActiveFill(t, q)
	}
}

// requireActiveFill checks that the currently processing batch accepts
// inserts unless both batches are Full.
func requireActiveFill(t *testing.T, q *Queue) {
	t.Helper()
	fulls := 0
	for i := 0; i < NumBatches; i++ {
		b, err := q.Batch(i)
		require.NoError(t, err)
		if b.State == batch.StateFull {
			fulls++
		}
	}
	if fulls == NumBatches {
		return
	}
	b, err := q.Batch(q.CurrentlyProcessingBatchIndex())
	require.NoError(t, err)
	require.Equal(t, batch.StateFill, b.State)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"unknown kind", func(p *Params) { p.Kind = KindUnknown }},
		{"zero batch size", func(p *Params) { p.BatchSize = 0 }},
		{"zero zkp batch size", func(p *Params) { p.ZkpBatchSize = 0 }},
		{"not a multiple", func(p *Params) { p.ZkpBatchSize = 3 }},
		{"batch size too large", func(p *Params) { p.BatchSize = maxElements + 2 }},
		{"zero bloom capacity", func(p *Params) { p.BloomCapacity = 0 }},
		{"bloom capacity overflows", func(p *Params) { p.BloomCapacity = 1 << 33 }},
		{"zero iterations", func(p *Params) { p.NumIters = 0 }},
		{"too many iterations", func(p *Params) { p.NumIters = 256 }},
		{"filter too small for batch", func(p *Params) { p.BloomCapacity = 8 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams(KindInput)
			tc.mutate(&p)
			require.ErrorIs(t, p.Validate(), ErrInvalidParams)
			_, err := RegionBytes(p)
			require.ErrorIs(t, err, ErrInvalidParams)
		})
	}
	require.NoError(t, testParams(KindInput).Validate())
	require.NoError(t, testParams(KindOutput).Validate())
}

func TestLayout(t *testing.T) {
	in, err := ComputeLayout(testParams(KindInput))
	require.NoError(t, err)
	bloomBytes := roundUp32(bloom.RegionBytesV1(2048))
	chainBytes := hashchain.StoreBytes(2)
	assert.Equal(t, uint64(HeaderBytes), in.BatchesOff)
	assert.Equal(t, bloomBytes, in.BloomBytes)
	assert.Equal(t, in.BloomOff[0]+bloomBytes, in.BloomOff[1])
	assert.Equal(t, in.BloomOff[1]+bloomBytes, in.HashchainOff[0])
	assert.Equal(t, uint64(HeaderBytes+2*batch.RecordBytes)+2*bloomBytes+2*chainBytes, in.Total)
	assert.Zero(t, in.ValuesBytes)

	out, err := ComputeLayout(testParams(KindOutput))
	require.NoError(t, err)
	assert.Zero(t, out.BloomBytes)
	assert.Equal(t, hashchain.StoreBytes(4), out.ValuesBytes)
	assert.Equal(t, uint64(HeaderBytes+2*batch.RecordBytes)+2*chainBytes+2*hashchain.StoreBytes(4), out.Total)

	for _, off := range []uint64{in.BloomOff[1], in.HashchainOff[0], in.HashchainOff[1], in.Total} {
		assert.Zero(t, off%32)
	}
}

func TestInitAndOpen(t *testing.T) {
	p := testParams(KindAddress)
	q := newQueue(t, p, 1)
	h := hasher.MustNew(hasher.KindSHA256)
	insertN(t, q, h, 0, 3)

	reopened, err := Open(q.Bytes())
	require.NoError(t, err)
	assert.Equal(t, p, reopened.Params())
	assert.Equal(t, q.Layout(), reopened.Layout())
	assert.Equal(t, 0, reopened.CurrentlyProcessingBatchIndex())
	b, err := reopened.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), b.NumInsertedElements)

	_, err = Open(q.Bytes()[:HeaderBytes])
	require.ErrorIs(t, err, ErrBadRegionSize)
	_, err = Open(q.Bytes()[:q.Layout().Total-1])
	require.ErrorIs(t, err, ErrBadRegionSize)

	_, err = Init(make([]byte, 10), p, 0)
	require.ErrorIs(t, err, ErrBadRegionSize)

	_, err = q.Batch(2)
	require.ErrorIs(t, err, ErrInvalidBatchIndex)
}

func TestInsertDuplicateInActiveBatch(t *testing.T) {
	q := newQueue(t, testParams(KindInput), 0)
	h := hasher.MustNew(hasher.KindSHA256)

	_, err := q.InsertIntoCurrentBatch(h, value(1), value(1))
	require.NoError(t, err)

	before := snapshot(q)
	_, err = q.InsertIntoCurrentBatch(h, value(1), value(2))
	require.ErrorIs(t, err, ErrDuplicateValue)
	assert.Equal(t, before, q.Bytes())
}

func TestInsertFillsAndRotates(t *testing.T) {
	q := newQueue(t, testParams(KindInput), 0)
	h := hasher.MustNew(hasher.KindSHA256)

	for i := uint64(0); i < 4; i++ {
		res, err := q.InsertIntoCurrentBatch(h, value(i), value(i))
		require.NoError(t, err)
		assert.Equal(t, 0, res.BatchIndex)
		assert.Equal(t, i == 3, res.BecameFull)

		found, err := q.MaybeContains(0, value(i))
		require.NoError(t, err)
		assert.True(t, found)
	}
	b0, err := q.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, batch.StateFull, b0.State)
	assert.Equal(t, 1, q.CurrentlyProcessingBatchIndex())
	assert.Equal(t, 0, q.NextFullBatchIndex())

	chain, err := q.HashchainStore(0)
	require.NoError(t, err)
	want0, err := hashchain.Of(h, value(0), value(1))
	require.NoError(t, err)
	want1, err := hashchain.Of(h, value(2), value(3))
	require.NoError(t, err)
	assert.Equal(t, [][32]byte{want0, want1}, chain.Digests())

	// A value held by the full batch is rejected by the active one.
	before := snapshot(q)
	_, err = q.InsertIntoCurrentBatch(h, value(2), value(2))
	require.ErrorIs(t, err, ErrDuplicateValue)
	assert.Equal(t, before, q.Bytes())

	insertN(t, q, h, 10, 4)
	assert.Equal(t, 0, q.CurrentlyProcessingBatchIndex())

	// Both batches are full.
	before = snapshot(q)
	_, err = q.InsertIntoCurrentBatch(h, value(20), value(20))
	require.ErrorIs(t, err, batch.ErrBatchNotReady)
	assert.Equal(t, before, q.Bytes())
}

func TestReadyChunkAndMarkInserted(t *testing.T) {
	q := newQueue(t, testParams(KindInput), 0)
	h := hasher.MustNew(hasher.KindSHA256)

	_, err := q.ReadyChunk()
	require.ErrorIs(t, err, batch.ErrBatchNotReady)
	_, _, err = q.MarkChunkInserted(1, 1, 10)
	require.ErrorIs(t, err, batch.ErrBatchNotReady)

	insertN(t, q, h, 0, 4)

	c, err := q.ReadyChunk()
	require.NoError(t, err)
	want, err := hashchain.Of(h, value(0), value(1))
	require.NoError(t, err)
	assert.Equal(t, Chunk{BatchIndex: 0, ZkpIndex: 0, Size: 2, Hashchain: want}, c)

	state, w, err := q.MarkChunkInserted(1, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, batch.StateFull, state)
	assert.Equal(t, 0, q.NextFullBatchIndex())

	c, err = q.ReadyChunk()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ZkpIndex)

	state, w, err = q.MarkChunkInserted(2, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, batch.StateInserted, state)
	// Batch 1 is active, so batch 0 waits as Inserted.
	assert.Nil(t, w)
	assert.Equal(t, 1, q.NextFullBatchIndex())

	b0, err := q.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), b0.SequenceNumber)
	assert.Equal(t, uint32(2), b0.RootIndex)

	_, err = q.ReadyChunk()
	require.ErrorIs(t, err, batch.ErrBatchNotReady)
}

func TestWipePreviousBatchBloomFilter(t *testing.T) {
	q := newQueue(t, testParams(KindInput), 0)
	h := hasher.MustNew(hasher.KindSHA256)
	var seq uint64
	var rootIndex uint32

	insertN(t, q, h, 0, 4)
	w, err := q.WipePreviousBatchBloomFilter()
	require.NoError(t, err)
	assert.Nil(t, w)

	applyAll(t, q, &seq, &rootIndex)
	insertN(t, q, h, 10, 1)

	// Below half of the active batch nothing is wiped.
	w, err = q.WipePreviousBatchBloomFilter()
	require.NoError(t, err)
	assert.Nil(t, w)

	insertN(t, q, h, 11, 1)
	w, err = q.WipePreviousBatchBloomFilter()
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, Wipe{BatchIndex: 0, SequenceNumber: 12, RootIndex: 2}, *w)

	b0, err := q.Batch(0)
	require.NoError(t, err)
	assert.True(t, b0.BloomZeroed)
	zeroed, err := bloom.IsZeroedV1(q.bloomRegion(0))
	require.NoError(t, err)
	assert.True(t, zeroed)

	// Wiping is idempotent.
	w, err = q.WipePreviousBatchBloomFilter()
	require.NoError(t, err)
	assert.Nil(t, w)

	// Values of the wiped batch no longer block inserts.
	require.NoError(t, q.CheckNonInclusion(value(0)))
	require.ErrorIs(t, q.CheckNonInclusion(value(10)), ErrDuplicateValue)
	insertN(t, q, h, 0, 1)
}

func TestRotationClearsState(t *testing.T) {
	q := newQueue(t, testParams(KindInput), 0)
	h := hasher.MustNew(hasher.KindSHA256)
	var seq uint64
	var rootIndex uint32

	insertN(t, q, h, 0, 4)
	applyAll(t, q, &seq, &rootIndex)
	insertN(t, q, h, 10, 3)

	// Filling batch 1 hands over to batch 0, which is Inserted with a dirty
	// filter. It is rotated at once and the wipe is reported.
	res, err := q.InsertIntoCurrentBatch(h, value(13), value(13))
	require.NoError(t, err)
	assert.Equal(t, 1, res.BatchIndex)
	assert.True(t, res.BecameFull)
	assert.True(t, res.Rotated)
	require.NotNil(t, res.Wipe)
	assert.Equal(t, Wipe{BatchIndex: 0, SequenceNumber: 12, RootIndex: 2}, *res.Wipe)
	assert.Equal(t, 0, q.CurrentlyProcessingBatchIndex())
	requireActiveFill(t, q)

	b0, err := q.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, batch.StateFill, b0.State)
	assert.Equal(t, uint64(0), b0.NumInsertedElements)
	assert.Equal(t, uint64(0), b0.NumInsertedZkps)
	assert.Equal(t, uint64(0), b0.SequenceNumber)
	assert.False(t, b0.BloomZeroed)

	chain, err := q.HashchainStore(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), chain.Len())

	for i := uint64(0); i < 4; i++ {
		found, err := q.MaybeContains(0, value(i))
		require.NoError(t, err)
		assert.False(t, found, "value %d survived rotation", i)
	}

	// The first insert after the rotation seeds a new chain.
	insertN(t, q, h, 20, 1)
	assert.Equal(t, [][32]byte{value(20)}, chain.Digests())
}

func TestRotationOnLastChunk(t *testing.T) {
	q := newQueue(t, testParams(KindInput), 0)
	h := hasher.MustNew(hasher.KindSHA256)

	insertN(t, q, h, 0, 8)
	assert.Equal(t, 0, q.CurrentlyProcessingBatchIndex())

	_, w, err := q.MarkChunkInserted(1, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, w)

	// Batch 0 is both the next full and the active batch, so its last chunk
	// returns it to Fill.
	state, w, err := q.MarkChunkInserted(2, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, batch.StateInserted, state)
	require.NotNil(t, w)
	assert.Equal(t, Wipe{BatchIndex: 0, SequenceNumber: 12, RootIndex: 2}, *w)
	requireActiveFill(t, q)

	b0, err := q.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, batch.StateFill, b0.State)
	assert.Equal(t, uint64(0), b0.NumInsertedElements)
	assert.Equal(t, uint64(0), mustLen(t, q, 0))
	assert.Equal(t, 1, q.NextFullBatchIndex())

	// Applying batch 1 leaves it Inserted behind the active batch 0.
	seq, rootIndex := uint64(2), uint32(2)
	applyAll(t, q, &seq, &rootIndex)
	b1, err := q.Batch(1)
	require.NoError(t, err)
	assert.Equal(t, batch.StateInserted, b1.State)
	assert.Equal(t, 0, q.NextFullBatchIndex())

	_, err = q.ReadyChunk()
	require.ErrorIs(t, err, batch.ErrBatchNotReady)
}

func mustLen(t *testing.T, q *Queue, i int) uint64 {
	t.Helper()
	chain, err := q.HashchainStore(i)
	require.NoError(t, err)
	return chain.Len()
}

func TestRotationAfterWipe(t *testing.T) {
	q := newQueue(t, testParams(KindAddress), 0)
	h := hasher.MustNew(hasher.KindSHA256)
	var seq uint64
	var rootIndex uint32

	insertN(t, q, h, 0, 4)
	applyAll(t, q, &seq, &rootIndex)
	insertN(t, q, h, 10, 2)
	w, err := q.WipePreviousBatchBloomFilter()
	require.NoError(t, err)
	require.NotNil(t, w)
	insertN(t, q, h, 12, 1)

	res, err := q.InsertIntoCurrentBatch(h, value(13), value(13))
	require.NoError(t, err)
	assert.True(t, res.Rotated)
	assert.Nil(t, res.Wipe)
	requireActiveFill(t, q)
}

func TestWrongKind(t *testing.T) {
	h := hasher.MustNew(hasher.KindSHA256)
	out := newQueue(t, testParams(KindOutput), 0)
	_, err := out.InsertIntoCurrentBatch(h, value(1), value(1))
	require.ErrorIs(t, err, ErrWrongKind)
	_, err = out.WipePreviousBatchBloomFilter()
	require.ErrorIs(t, err, ErrWrongKind)
	_, err = out.MaybeContains(0, value(1))
	require.ErrorIs(t, err, ErrWrongKind)

	in := newQueue(t, testParams(KindInput), 0)
	_, err = in.Append(h, value(1))
	require.ErrorIs(t, err, ErrWrongKind)
	_, err = in.ValueAt(0)
	require.ErrorIs(t, err, ErrWrongKind)
}

func TestAppend(t *testing.T) {
	q := newQueue(t, testParams(KindOutput), 100)
	h := hasher.MustNew(hasher.KindSHA256)

	for i := uint64(0); i < 5; i++ {
		res, err := q.Append(h, value(i))
		require.NoError(t, err)
		assert.Equal(t, 100+i, res.LeafIndex)
		assert.Equal(t, int(i/4), res.BatchIndex)
	}
	assert.Equal(t, uint64(105), q.NextIndex())

	b1, err := q.Batch(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(104), b1.StartIndex)

	v, err := q.ValueAt(102)
	require.NoError(t, err)
	assert.Equal(t, value(2), v)
	_, err = q.ValueAt(105)
	require.ErrorIs(t, err, ErrLeafIndexNotInQueue)

	c, err := q.ReadyChunk()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), c.StartIndex)
	values, err := q.ChunkValues(c)
	require.NoError(t, err)
	assert.Equal(t, [][32]byte{value(0), value(1)}, values)

	_, _, err = q.MarkChunkInserted(1, 1, 10)
	require.NoError(t, err)

	// Committed leaves are no longer pending.
	found, err := q.ProveInclusionByIndex(100, value(0))
	require.NoError(t, err)
	assert.False(t, found)

	found, err = q.ProveInclusionByIndex(103, value(3))
	require.NoError(t, err)
	assert.True(t, found)
	_, err = q.ProveInclusionByIndex(103, value(4))
	require.ErrorIs(t, err, ErrInclusionProofByIndexFailed)
}

func TestZeroOutLeaf(t *testing.T) {
	q := newQueue(t, testParams(KindOutput), 0)
	h := hasher.MustNew(hasher.KindSHA256)
	for i := uint64(0); i < 3; i++ {
		_, err := q.Append(h, value(i))
		require.NoError(t, err)
	}

	before := snapshot(q)
	require.ErrorIs(t, q.ZeroOutLeaf(1, value(2), false), ErrInclusionProofByIndexFailed)
	assert.Equal(t, before, q.Bytes())

	require.NoError(t, q.ZeroOutLeaf(7, value(7), false))
	require.ErrorIs(t, q.ZeroOutLeaf(7, value(7), true), ErrInclusionProofByIndexFailed)

	require.NoError(t, q.ZeroOutLeaf(1, value(1), true))
	v, err := q.ValueAt(1)
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, v)

	// The slot can only be consumed once.
	require.ErrorIs(t, q.ZeroOutLeaf(1, value(1), true), ErrInclusionProofByIndexFailed)
}

func TestAppendRotation(t *testing.T) {
	q := newQueue(t, testParams(KindOutput), 0)
	h := hasher.MustNew(hasher.KindSHA256)
	var seq uint64
	var rootIndex uint32

	for i := uint64(0); i < 8; i++ {
		_, err := q.Append(h, value(i))
		require.NoError(t, err)
	}
	_, err := q.Append(h, value(8))
	require.ErrorIs(t, err, batch.ErrBatchNotReady)
	assert.Equal(t, uint64(8), q.NextIndex())

	applyAll(t, q, &seq, &rootIndex)

	// Batch 0 was active when its last chunk was applied and is already
	// back in Fill with empty stores.
	b0, err := q.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, batch.StateFill, b0.State)
	assert.Equal(t, uint64(0), b0.NumInsertedElements)
	values, err := q.valueStore(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), values.Len())

	res, err := q.Append(h, value(8))
	require.NoError(t, err)
	assert.False(t, res.Rotated)
	assert.Nil(t, res.Wipe)
	assert.Equal(t, uint64(8), res.LeafIndex)

	b0, err = q.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), b0.StartIndex)
	assert.Equal(t, [][32]byte{value(8)}, values.Digests())
}

func TestMonotonicReservation(t *testing.T) {
	p := Params{Kind: KindOutput, BatchSize: 8, ZkpBatchSize: 2}
	q := newQueue(t, p, 0)
	h := hasher.MustNew(hasher.KindSHA256)
	f := fuzz.NewWithSeed(7)
	var seq uint64
	var rootIndex uint32

	var next uint64
	for round := 0; round < 20; round++ {
		var n uint8
		f.Fuzz(&n)
		for k := 0; k < int(n%6); k++ {
			var v [32]byte
			f.Fuzz(&v)
			before := q.NextIndex()
			res, err := q.Append(h, v)
			if err != nil {
				require.ErrorIs(t, err, batch.ErrBatchNotReady)
				require.Equal(t, before, q.NextIndex())
				continue
			}
			require.Equal(t, before, res.LeafIndex)
			next++
			require.Equal(t, next, q.NextIndex())
			requireActiveFill(t, q)
		}
		var apply bool
		f.Fuzz(&apply)
		if apply {
			applyAll(t, q, &seq, &rootIndex)
		}
	}
}

func TestCrossBatchUniqueness(t *testing.T) {
	p := Params{Kind: KindInput, BatchSize: 16, ZkpBatchSize: 4, BloomCapacity: 8 * 1024, NumIters: 3}
	q := newQueue(t, p, 0)
	h := hasher.MustNew(hasher.KindSHA256)
	f := fuzz.NewWithSeed(11)
	var seq uint64
	var rootIndex uint32

	for n := 0; n < 100; n++ {
		var v [32]byte
		f.Fuzz(&v)
		cur := q.CurrentlyProcessingBatchIndex()
		sib := other(cur)
		sb, err := q.Batch(sib)
		require.NoError(t, err)

		res, err := q.InsertIntoCurrentBatch(h, v, v)
		if err != nil {
			require.ErrorIs(t, err, batch.ErrBatchNotReady)
			applyAll(t, q, &seq, &rootIndex)
			continue
		}
		found, err := q.MaybeContains(res.BatchIndex, v)
		require.NoError(t, err)
		require.True(t, found)
		if !sb.BloomZeroed && sb.State != batch.StateFill {
			found, err = q.MaybeContains(sib, v)
			require.NoError(t, err)
			require.False(t, found)
		}
		_, err = q.WipePreviousBatchBloomFilter()
		require.NoError(t, err)
		requireActiveFill(t, q)
	}
}
