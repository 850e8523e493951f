package bloom

import "errors"

const (
	// ValueBytes is the width of every element. Queue values are 32 byte
	// digests or field elements.
	ValueBytes = 32

	HeaderBytesV1 = 32

	MagicV1         = "BLM1"
	VersionV1 uint8 = 1

	// BitOrderLSB0 numbers bit 0 as the least significant bit of byte 0. It
	// is the only order V1 defines.
	BitOrderLSB0 uint8 = 0
)

// The saturation bound uses ln 2 ~= 693/1000.
const (
	ln2Num = 693
	ln2Den = 1000
)

var (
	ErrBadElemSize    = errors.New("bloom: element is not 32 bytes")
	ErrBadRegionSize  = errors.New("bloom: region is too small")
	ErrNotInitialized = errors.New("bloom: region has not been initialized")
	ErrFull           = errors.New("bloom: filter is saturated")
	ErrBadMagic       = errors.New("bloom: header magic is invalid")
	ErrBadVersion     = errors.New("bloom: header version is not supported")
	ErrBadBitOrder    = errors.New("bloom: header bit order is not supported")
	ErrBadK           = errors.New("bloom: filter must set at least one bit per element")
	ErrBadMBits       = errors.New("bloom: filter must have at least one bit")
	ErrMBitsOverflow  = errors.New("bloom: filter bit count does not fit 32 bits")
)

// HeaderV1 is the decoded filter header. NInserted counts the elements
// inserted since the filter was initialized or last cleared.
type HeaderV1 struct {
	BitOrder  uint8
	K         uint8
	MBits     uint32
	NInserted uint32
}
