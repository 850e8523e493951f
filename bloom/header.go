package bloom

import "encoding/binary"

// Filter region header, big endian.
//
// .        | magic | version | bit order | k | reserved | m bits  | inserted | reserved |
// .        | 0 - 3 | 4       | 5         | 6 | 7        | 8 - 11  | 12 - 15  | 16 - 31  |
const (
	hdrMagicEnd       = 4
	hdrVersionByte    = 4
	hdrBitOrderByte   = 5
	hdrKByte          = 6
	hdrMBitsFirst     = 8
	hdrNInsertedFirst = 12
)

func (h HeaderV1) check() error {
	switch {
	case h.BitOrder != BitOrderLSB0:
		return ErrBadBitOrder
	case h.K == 0:
		return ErrBadK
	case h.MBits == 0:
		return ErrBadMBits
	}
	return nil
}

// DecodeHeaderV1 reads the header at the start of region. A region whose
// magic bytes are all zero has never been initialised and decodes with
// ok=false.
func DecodeHeaderV1(region []byte) (h HeaderV1, ok bool, err error) {
	if len(region) < HeaderBytesV1 {
		return HeaderV1{}, false, ErrBadRegionSize
	}
	magic := region[:hdrMagicEnd]
	if magic[0]|magic[1]|magic[2]|magic[3] == 0 {
		return HeaderV1{}, false, nil
	}
	if string(magic) != MagicV1 {
		return HeaderV1{}, false, ErrBadMagic
	}
	if region[hdrVersionByte] != VersionV1 {
		return HeaderV1{}, false, ErrBadVersion
	}
	h = HeaderV1{
		BitOrder:  region[hdrBitOrderByte],
		K:         region[hdrKByte],
		MBits:     binary.BigEndian.Uint32(region[hdrMBitsFirst:]),
		NInserted: binary.BigEndian.Uint32(region[hdrNInsertedFirst:]),
	}
	if err := h.check(); err != nil {
		return HeaderV1{}, false, err
	}
	return h, true, nil
}

// EncodeHeaderV1 writes h at the start of region. The reserved bytes are
// zeroed.
func EncodeHeaderV1(region []byte, h HeaderV1) error {
	if len(region) < HeaderBytesV1 {
		return ErrBadRegionSize
	}
	if err := h.check(); err != nil {
		return err
	}
	clear(region[:HeaderBytesV1])
	copy(region[:hdrMagicEnd], MagicV1)
	region[hdrVersionByte] = VersionV1
	region[hdrBitOrderByte] = h.BitOrder
	region[hdrKByte] = h.K
	binary.BigEndian.PutUint32(region[hdrMBitsFirst:], h.MBits)
	binary.BigEndian.PutUint32(region[hdrNInsertedFirst:], h.NInserted)
	return nil
}
