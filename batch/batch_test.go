package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch() Batch {
	return New(4, 2, 1024, 3, 0)
}

func fill(t *testing.T, b *Batch, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, b.IncrementInserted())
	}
}

func TestLifecycle(t *testing.T) {
	b := testBatch()
	require.Equal(t, StateFill, b.State)
	require.Equal(t, uint64(2), b.NumZkpBatches())

	_, err := b.FirstReadyZkpBatch()
	require.ErrorIs(t, err, ErrBatchNotReady)

	fill(t, &b, 3)
	assert.Equal(t, StateFill, b.State)
	assert.Equal(t, uint64(1), b.NumReadyZkpBatches())
	assert.Equal(t, uint64(1), b.CurrentZkpBatchIndex())
	assert.False(t, b.StartsNewZkp())

	// A complete chunk is not applied until the batch is Full.
	_, err = b.FirstReadyZkpBatch()
	require.ErrorIs(t, err, ErrBatchNotReady)

	fill(t, &b, 1)
	assert.Equal(t, StateFull, b.State)
	assert.True(t, b.IsFull())
	require.ErrorIs(t, b.IncrementInserted(), ErrBatchNotReady)

	idx, err := b.FirstReadyZkpBatch()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx)

	state, err := b.MarkAsInserted(1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, StateFull, state)
	assert.Equal(t, uint64(0), b.SequenceNumber)
	assert.Equal(t, uint64(2), b.NumElementsInsertedIntoTree())

	state, err = b.MarkAsInserted(2, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, StateInserted, state)
	assert.Equal(t, uint64(12), b.SequenceNumber)
	assert.Equal(t, uint32(2), b.RootIndex)

	_, err = b.MarkAsInserted(3, 3, 10)
	require.ErrorIs(t, err, ErrBatchAlreadyInserted)
	_, err = b.FirstReadyZkpBatch()
	require.ErrorIs(t, err, ErrBatchAlreadyInserted)
	require.ErrorIs(t, err, ErrBatchNotReady)

	b.BloomZeroed = true
	require.NoError(t, b.AdvanceToFill(4))
	assert.Equal(t, StateFill, b.State)
	assert.Equal(t, uint64(0), b.NumInsertedElements)
	assert.Equal(t, uint64(0), b.NumInsertedZkps)
	assert.Equal(t, uint64(0), b.SequenceNumber)
	assert.Equal(t, uint32(0), b.RootIndex)
	assert.Equal(t, uint64(4), b.StartIndex)
	assert.False(t, b.BloomZeroed)
}

func TestAdvanceToFillRequiresInserted(t *testing.T) {
	for _, tc := range []struct {
		name   string
		insert int
	}{
		{"empty", 0},
		{"partial", 1},
		{"full", 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := testBatch()
			fill(t, &b, tc.insert)
			require.ErrorIs(t, b.AdvanceToFill(0), ErrBatchNotReady)
		})
	}
}

func TestLeafIndexRanges(t *testing.T) {
	b := New(4, 2, 1024, 3, 8)
	fill(t, &b, 4)
	_, err := b.MarkAsInserted(1, 0, 10)
	require.NoError(t, err)

	tests := []struct {
		leaf       uint64
		couldExist bool
		pending    bool
		valueIndex uint64
	}{
		{leaf: 7},
		{leaf: 8, couldExist: true, valueIndex: 0},
		{leaf: 9, couldExist: true, valueIndex: 1},
		{leaf: 10, couldExist: true, pending: true, valueIndex: 2},
		{leaf: 11, couldExist: true, pending: true, valueIndex: 3},
		{leaf: 12},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.couldExist, b.LeafIndexCouldExist(tc.leaf), "leaf %d", tc.leaf)
		assert.Equal(t, tc.pending, b.IsPending(tc.leaf), "leaf %d", tc.leaf)
		vi, err := b.ValueIndex(tc.leaf)
		if !tc.couldExist {
			require.ErrorIs(t, err, ErrLeafIndexNotInBatch)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.valueIndex, vi)
	}
}

func TestRecord(t *testing.T) {
	b := New(500, 100, 160_000, 3, 77)
	fill(t, &b, 500)
	for i := uint64(0); i < 5; i++ {
		_, err := b.MarkAsInserted(40+i, uint32(i), 20)
		require.NoError(t, err)
	}
	b.BloomZeroed = true

	buf := make([]byte, RecordBytes)
	require.NoError(t, b.Encode(buf))
	assert.Equal(t, byte(StateInserted), buf[0])
	assert.Equal(t, byte(1), buf[1])

	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	require.ErrorIs(t, b.Encode(make([]byte, 32)), ErrBadRecordSize)
	_, err = Decode(buf[:64])
	require.ErrorIs(t, err, ErrBadRecordSize)

	buf[0] = 9
	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrBadState)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fill", StateFill.String())
	assert.Equal(t, "full", StateFull.String())
	assert.Equal(t, "inserted", StateInserted.String())
	assert.Equal(t, "state(7)", State(7).String())
}
