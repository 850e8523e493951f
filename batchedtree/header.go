package batchedtree

import (
	"encoding/binary"
	"fmt"

	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/google/uuid"
)

// The tree header is 3 32 byte slots, big endian.
//
// slot 0
// .      | magic | version | tree type | hasher | height | canopy | reserved | root history capacity | sequence number | next index |
// .      | 0 - 3 | 4       | 5         | 6      | 7      | 8      | 9 - 11   | 12 - 15               | 16 - 23         | 24 - 31    |
//
// slot 1
// .      | tree id | reserved |
// .      | 32 - 47 | 48 - 63  |
//
// slot 2 is reserved.
const (
	HeaderBytes = 3 * 32

	MagicV1         = "BTR1"
	VersionV1 uint8 = 1

	hdrMagicFirst          = 0
	hdrMagicEnd            = 4
	hdrVersionByte         = 4
	hdrTreeTypeByte        = 5
	hdrHasherByte          = 6
	hdrHeightByte          = 7
	hdrCanopyByte          = 8
	hdrRootHistoryCapFirst = 12
	hdrSeqFirst            = 16
	hdrNextIndexFirst      = 24
	hdrTreeIDFirst         = 32
	hdrTreeIDEnd           = 48
)

// Header is the decoded form of the region header.
type Header struct {
	TreeType            TreeType
	Hasher              hasher.Kind
	Height              uint8
	CanopyDepth         uint8
	RootHistoryCapacity uint32
	SequenceNumber      uint64
	NextIndex           uint64
	TreeID              uuid.UUID
}

// EncodeHeader writes h to the first HeaderBytes of dst.
func EncodeHeader(dst []byte, h Header) error {
	if len(dst) < HeaderBytes {
		return fmt.Errorf("%w: header needs %d bytes", ErrRegionSize, HeaderBytes)
	}
	clear(dst[:HeaderBytes])
	copy(dst[hdrMagicFirst:hdrMagicEnd], MagicV1)
	dst[hdrVersionByte] = VersionV1
	dst[hdrTreeTypeByte] = uint8(h.TreeType)
	dst[hdrHasherByte] = uint8(h.Hasher)
	dst[hdrHeightByte] = h.Height
	dst[hdrCanopyByte] = h.CanopyDepth
	binary.BigEndian.PutUint32(dst[hdrRootHistoryCapFirst:], h.RootHistoryCapacity)
	binary.BigEndian.PutUint64(dst[hdrSeqFirst:], h.SequenceNumber)
	binary.BigEndian.PutUint64(dst[hdrNextIndexFirst:], h.NextIndex)
	copy(dst[hdrTreeIDFirst:hdrTreeIDEnd], h.TreeID[:])
	return nil
}

// DecodeHeader reads the header at the start of src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderBytes {
		return Header{}, fmt.Errorf("%w: header needs %d bytes", ErrRegionSize, HeaderBytes)
	}
	if string(src[hdrMagicFirst:hdrMagicEnd]) != MagicV1 {
		return Header{}, ErrBadMagic
	}
	if src[hdrVersionByte] != VersionV1 {
		return Header{}, fmt.Errorf("%w: %d", ErrBadVersion, src[hdrVersionByte])
	}
	h := Header{
		TreeType:            TreeType(src[hdrTreeTypeByte]),
		Hasher:              hasher.Kind(src[hdrHasherByte]),
		Height:              src[hdrHeightByte],
		CanopyDepth:         src[hdrCanopyByte],
		RootHistoryCapacity: binary.BigEndian.Uint32(src[hdrRootHistoryCapFirst:]),
		SequenceNumber:      binary.BigEndian.Uint64(src[hdrSeqFirst:]),
		NextIndex:           binary.BigEndian.Uint64(src[hdrNextIndexFirst:]),
	}
	copy(h.TreeID[:], src[hdrTreeIDFirst:hdrTreeIDEnd])
	return h, nil
}
