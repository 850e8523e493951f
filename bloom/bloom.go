package bloom

import (
	"crypto/sha256"
	"encoding/binary"
)

// domainV1 prefixes every element before it is hashed for bit positions.
const domainV1 = 0xB0

// InitV1 formats region as an empty filter of mBits bits setting k bits per
// element. region must be at least RegionBytesV1(mBits) long; only that
// prefix is written.
func InitV1(region []byte, mBits uint32, k uint8) error {
	if mBits == 0 {
		return ErrBadMBits
	}
	if k == 0 {
		return ErrBadK
	}
	end := RegionBytesV1(mBits)
	if uint64(len(region)) < end {
		return ErrBadRegionSize
	}
	clear(region[:end])
	return EncodeHeaderV1(region, HeaderV1{BitOrder: BitOrderLSB0, K: k, MBits: mBits})
}

// InsertV1 sets the bits of elem and counts the insert. A saturated filter
// fails with ErrFull and is left unchanged.
func InsertV1(region []byte, elem []byte) error {
	f, err := openV1(region)
	if err != nil {
		return err
	}
	p, err := newProbeV1(f.h, elem)
	if err != nil {
		return err
	}
	if saturatedV1(f.h) {
		return ErrFull
	}
	for i := uint8(0); i < f.h.K; i++ {
		j := p.position(i)
		f.bitset[j>>3] |= 1 << (j & 7)
	}
	f.h.NInserted++
	return EncodeHeaderV1(region, f.h)
}

// CanInsertV1 reports whether the next InsertV1 would be accepted.
func CanInsertV1(region []byte) (bool, error) {
	f, err := openV1(region)
	if err != nil {
		return false, err
	}
	return !saturatedV1(f.h), nil
}

// MaybeContainsV1 reports false when elem was certainly never inserted and
// true when it may have been.
func MaybeContainsV1(region []byte, elem []byte) (bool, error) {
	f, err := openV1(region)
	if err != nil {
		return false, err
	}
	p, err := newProbeV1(f.h, elem)
	if err != nil {
		return false, err
	}
	for i := uint8(0); i < f.h.K; i++ {
		j := p.position(i)
		if f.bitset[j>>3]&(1<<(j&7)) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// ClearV1 zeroes the bitset and the insert counter. The filter parameters
// are kept so the region can be reused without another InitV1.
func ClearV1(region []byte) error {
	f, err := openV1(region)
	if err != nil {
		return err
	}
	clear(f.bitset)
	f.h.NInserted = 0
	return EncodeHeaderV1(region, f.h)
}

// IsZeroedV1 reports whether no bit of the bitset is set.
func IsZeroedV1(region []byte) (bool, error) {
	f, err := openV1(region)
	if err != nil {
		return false, err
	}
	for _, b := range f.bitset {
		if b != 0 {
			return false, nil
		}
	}
	return true, nil
}

// filterV1 is a decoded header with the bitset it describes.
type filterV1 struct {
	h      HeaderV1
	bitset []byte
}

func openV1(region []byte) (filterV1, error) {
	h, ok, err := DecodeHeaderV1(region)
	if err != nil {
		return filterV1{}, err
	}
	if !ok {
		return filterV1{}, ErrNotInitialized
	}
	end := RegionBytesV1(h.MBits)
	if uint64(len(region)) < end {
		return filterV1{}, ErrBadRegionSize
	}
	return filterV1{h: h, bitset: region[HeaderBytesV1:end]}, nil
}

// probeV1 derives the bit positions of one element by double hashing:
// position i is (h1 + i*h2) mod mBits where h1 and h2 are the first two big
// endian words of SHA-256(0xB0 || elem).
type probeV1 struct {
	h1, h2 uint64
	mBits  uint64
}

func newProbeV1(h HeaderV1, elem []byte) (probeV1, error) {
	if len(elem) != ValueBytes {
		return probeV1{}, ErrBadElemSize
	}
	var buf [1 + ValueBytes]byte
	buf[0] = domainV1
	copy(buf[1:], elem)
	sum := sha256.Sum256(buf[:])
	p := probeV1{
		h1:    binary.BigEndian.Uint64(sum[0:8]),
		h2:    binary.BigEndian.Uint64(sum[8:16]),
		mBits: uint64(h.MBits),
	}
	// h2 == 0 would collapse every position onto h1.
	if p.h2 == 0 {
		p.h2 = 1
	}
	return p, nil
}

func (p probeV1) position(i uint8) uint64 {
	return (p.h1 + uint64(i)*p.h2) % p.mBits
}
