package checkpoint

import (
	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
)

// TreeState is the signed commitment to a tree at a sequence number.
type TreeState struct {
	// TreeID is the uuid bound into the tree's header.
	TreeID []byte `cbor:"1,keyasint"`
	// Root is the tree root at SequenceNumber. It is detached from the signed
	// payload and must be restored before verification.
	Root []byte `cbor:"2,keyasint"`
	// Timestamp is the unix time (milliseconds) read when the state was
	// captured. It allows the same root to be re-signed.
	Timestamp int64 `cbor:"3,keyasint"`
	// RootIndex is the root history slot holding Root.
	RootIndex uint32 `cbor:"4,keyasint"`
	// SequenceNumber counts the chunks applied to the tree.
	SequenceNumber uint64 `cbor:"5,keyasint"`
	// NextIndex is the first leaf index not covered by Root.
	NextIndex uint64 `cbor:"6,keyasint"`
}

// NewCodec returns the deterministic codec checkpoints are encoded with.
func NewCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(), // unsigned int decodes to uint64
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}
