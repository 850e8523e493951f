package batch

import (
	"encoding/binary"
	"fmt"
)

// A batch record is three 32 byte slots, all integers big endian.
//
// .        | state | bloom zeroed | reserved | root index | num inserted | num inserted zkps | sequence number |
// slot 0   | 0     | 1            | 2 - 3    | 4 - 7      | 8 - 15       | 16 - 23           | 24 - 31         |
//
// .        | batch size | zkp batch size | start index | bloom capacity |
// slot 1   | 0 - 7      | 8 - 15         | 16 - 23     | 24 - 31        |
//
// .        | num iters | reserved |
// slot 2   | 0 - 7     | 8 - 31   |
const (
	RecordBytes = 96

	recStateByte       = 0
	recBloomZeroedByte = 1
	recRootIndexFirst  = 4
	recNumInsFirst     = 8
	recNumZkpsFirst    = 16
	recSeqFirst        = 24

	recBatchSizeFirst  = 32
	recZkpSizeFirst    = 40
	recStartIndexFirst = 48
	recBloomCapFirst   = 56
	recNumItersFirst   = 64
	recReservedFirst   = 72
)

// Encode writes the record form of b into dst.
func (b *Batch) Encode(dst []byte) error {
	if len(dst) != RecordBytes {
		return fmt.Errorf("%w: %d", ErrBadRecordSize, len(dst))
	}
	dst[recStateByte] = uint8(b.State)
	dst[recBloomZeroedByte] = 0
	if b.BloomZeroed {
		dst[recBloomZeroedByte] = 1
	}
	dst[2], dst[3] = 0, 0
	binary.BigEndian.PutUint32(dst[recRootIndexFirst:], b.RootIndex)
	binary.BigEndian.PutUint64(dst[recNumInsFirst:], b.NumInsertedElements)
	binary.BigEndian.PutUint64(dst[recNumZkpsFirst:], b.NumInsertedZkps)
	binary.BigEndian.PutUint64(dst[recSeqFirst:], b.SequenceNumber)
	binary.BigEndian.PutUint64(dst[recBatchSizeFirst:], b.BatchSize)
	binary.BigEndian.PutUint64(dst[recZkpSizeFirst:], b.ZkpBatchSize)
	binary.BigEndian.PutUint64(dst[recStartIndexFirst:], b.StartIndex)
	binary.BigEndian.PutUint64(dst[recBloomCapFirst:], b.BloomCapacity)
	binary.BigEndian.PutUint64(dst[recNumItersFirst:], b.NumIters)
	clear(dst[recReservedFirst:])
	return nil
}

// Decode reads a record written by Encode.
func Decode(src []byte) (Batch, error) {
	if len(src) != RecordBytes {
		return Batch{}, fmt.Errorf("%w: %d", ErrBadRecordSize, len(src))
	}
	b := Batch{
		State:               State(src[recStateByte]),
		BloomZeroed:         src[recBloomZeroedByte] != 0,
		RootIndex:           binary.BigEndian.Uint32(src[recRootIndexFirst:]),
		NumInsertedElements: binary.BigEndian.Uint64(src[recNumInsFirst:]),
		NumInsertedZkps:     binary.BigEndian.Uint64(src[recNumZkpsFirst:]),
		SequenceNumber:      binary.BigEndian.Uint64(src[recSeqFirst:]),
		BatchSize:           binary.BigEndian.Uint64(src[recBatchSizeFirst:]),
		ZkpBatchSize:        binary.BigEndian.Uint64(src[recZkpSizeFirst:]),
		StartIndex:          binary.BigEndian.Uint64(src[recStartIndexFirst:]),
		BloomCapacity:       binary.BigEndian.Uint64(src[recBloomCapFirst:]),
		NumIters:            binary.BigEndian.Uint64(src[recNumItersFirst:]),
	}
	if !b.State.valid() {
		return Batch{}, fmt.Errorf("%w: %d", ErrBadState, src[recStateByte])
	}
	return b, nil
}
