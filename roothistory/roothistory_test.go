package roothistory

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func root(v uint64) [32]byte {
	var r [32]byte
	binary.BigEndian.PutUint64(r[24:], v)
	return r
}

func newHistory(t *testing.T, capacity uint32) History {
	t.Helper()
	h, err := Init(make([]byte, RegionBytes(capacity)), capacity)
	require.NoError(t, err)
	return h
}

func TestPushWraps(t *testing.T) {
	h := newHistory(t, 3)
	_, err := h.Last()
	require.ErrorIs(t, err, ErrEmpty)

	for i := uint64(1); i <= 5; i++ {
		next := h.NextSlot()
		idx := h.Push(root(i))
		assert.Equal(t, next, idx)
		assert.Equal(t, uint32((i-1)%3), idx)
	}
	assert.Equal(t, uint32(3), h.Len())
	assert.Equal(t, uint32(1), h.LastIndex())
	assert.Equal(t, uint32(2), h.FirstIndex())

	last, err := h.Last()
	require.NoError(t, err)
	assert.Equal(t, root(5), last)
	assert.Equal(t, [][32]byte{root(3), root(4), root(5)}, h.Roots())
	assert.Equal(t, [][32]byte{root(4), root(5), root(3)}, h.Slots())

	idx, ok := h.IndexOf(root(4))
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)
	_, ok = h.IndexOf(root(1))
	assert.False(t, ok)

	_, err = h.Get(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestInvalidateBefore(t *testing.T) {
	tests := []struct {
		name      string
		pushes    uint64
		rootIndex uint32
		want      [][32]byte // by slot index
		zeroed    int
	}{
		{
			name:      "partial fill, invalidate up to latest",
			pushes:    4,
			rootIndex: 3,
			want:      [][32]byte{Sentinel, Sentinel, Sentinel, root(4)},
			zeroed:    3,
		},
		{
			name:      "partial fill, keep newer than root index",
			pushes:    4,
			rootIndex: 1,
			want:      [][32]byte{Sentinel, root(2), root(3), root(4)},
			zeroed:    1,
		},
		{
			name:      "wrapped, oldest slot follows last",
			pushes:    7, // slots: 6 7 3 4 5, last index 1
			rootIndex: 0,
			want:      [][32]byte{root(6), root(7), Sentinel, Sentinel, Sentinel},
			zeroed:    3,
		},
		{
			name:      "root index is the oldest slot",
			pushes:    7,
			rootIndex: 2,
			want:      [][32]byte{root(6), root(7), root(3), root(4), root(5)},
			zeroed:    0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHistory(t, uint32(len(tc.want)))
			for i := uint64(1); i <= tc.pushes; i++ {
				h.Push(root(i))
			}
			n, err := h.InvalidateBefore(tc.rootIndex)
			require.NoError(t, err)
			assert.Equal(t, tc.zeroed, n)
			assert.Equal(t, tc.want, h.Slots())

			last, err := h.Last()
			require.NoError(t, err)
			assert.False(t, IsSentinel(last))
		})
	}
}

func TestSentinelIsNeverFound(t *testing.T) {
	h := newHistory(t, 4)
	h.Push(root(1))
	h.Push(root(2))
	_, err := h.InvalidateBefore(1)
	require.NoError(t, err)

	_, ok := h.IndexOf(Sentinel)
	assert.False(t, ok)
	_, ok = h.IndexOf(root(1))
	assert.False(t, ok)

	_, err = h.InvalidateBefore(2)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestOpen(t *testing.T) {
	region := make([]byte, RegionBytes(4))
	h, err := Init(region, 4)
	require.NoError(t, err)
	h.Push(root(9))

	reopened, err := Open(region)
	require.NoError(t, err)
	last, err := reopened.Last()
	require.NoError(t, err)
	assert.Equal(t, root(9), last)

	_, err = Open(make([]byte, HeaderBytes))
	require.ErrorIs(t, err, ErrBadCapacity)
	_, err = Open(region[:HeaderBytes+32])
	require.ErrorIs(t, err, ErrBadRegionSize)
	_, err = Init(region, 0)
	require.ErrorIs(t, err, ErrBadCapacity)

	binary.BigEndian.PutUint32(region[lengthFirst:], 7)
	_, err = Open(region)
	require.ErrorIs(t, err, ErrCorruptHeader)
}
