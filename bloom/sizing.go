package bloom

import (
	"fmt"
	"math"
)

// MBitsV1 checks that a filter of bits bits can be described by a V1 header.
func MBitsV1(bits uint64) (uint32, error) {
	if bits == 0 {
		return 0, ErrBadMBits
	}
	if bits > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrMBitsOverflow, bits)
	}
	return uint32(bits), nil
}

func bitsetBytesV1(mBits uint32) uint64 { return (uint64(mBits) + 7) >> 3 }

// RegionBytesV1 is the size of a filter region: the header followed by
// ceil(mBits/8) bitset bytes.
func RegionBytesV1(mBits uint32) uint64 {
	return HeaderBytesV1 + bitsetBytesV1(mBits)
}

// MaxElementsV1 is the number of inserts a filter of mBits bits and k
// positions per element admits before InsertV1 fails with ErrFull.
func MaxElementsV1(mBits uint32, k uint8) uint64 {
	if k == 0 {
		return 0
	}
	return uint64(mBits) * ln2Num / (uint64(k) * ln2Den)
}

// saturatedV1 reports whether one more insert would push k*n past mBits*ln2.
func saturatedV1(h HeaderV1) bool {
	return (uint64(h.NInserted)+1)*uint64(h.K)*ln2Den > uint64(h.MBits)*ln2Num
}
