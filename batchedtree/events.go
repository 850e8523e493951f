package batchedtree

import (
	"fmt"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
)

type EventKind uint8

const (
	EventKindUnknown EventKind = iota
	EventBatchAppend
	EventBatchNullify
	EventBatchAddressAppend
)

func (k EventKind) String() string {
	switch k {
	case EventBatchAppend:
		return "batch-append"
	case EventBatchNullify:
		return "batch-nullify"
	case EventBatchAddressAppend:
		return "batch-address-append"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event records the application of one chunk.
type Event struct {
	Kind   EventKind `cbor:"1,keyasint"`
	TreeID []byte    `cbor:"2,keyasint"`
	// BatchIndex is the queue batch the chunk was taken from.
	BatchIndex    uint64 `cbor:"3,keyasint"`
	ZkpBatchIndex uint64 `cbor:"4,keyasint"`
	ZkpBatchSize  uint64 `cbor:"5,keyasint"`
	// OldNextIndex and NewNextIndex bracket the leaves the chunk wrote. They
	// are equal for nullify chunks.
	OldNextIndex   uint64 `cbor:"6,keyasint"`
	NewNextIndex   uint64 `cbor:"7,keyasint"`
	NewRoot        []byte `cbor:"8,keyasint"`
	RootIndex      uint32 `cbor:"9,keyasint"`
	SequenceNumber uint64 `cbor:"10,keyasint"`
	BatchSize      uint64 `cbor:"11,keyasint"`
	// InvalidatedRoots counts the root history slots zeroed by the bloom
	// filter wipe that followed the chunk.
	InvalidatedRoots uint64 `cbor:"12,keyasint,omitempty"`
}

// NewEventCodec returns the deterministic codec events are encoded with.
func NewEventCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(),
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}

func EncodeEvent(codec dtcbor.CBORCodec, e Event) ([]byte, error) {
	return codec.MarshalCBOR(e)
}

func DecodeEvent(codec dtcbor.CBORCodec, data []byte) (Event, error) {
	var e Event
	if err := codec.UnmarshalInto(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
