package batchedtree

import (
	"errors"
	"fmt"
)

// Circuit names the statement a chunk's proof attests to.
type Circuit uint8

const (
	CircuitUnknown Circuit = iota
	CircuitAppend
	CircuitNullify
	CircuitAddressAppend
)

func (c Circuit) String() string {
	switch c {
	case CircuitAppend:
		return "append"
	case CircuitNullify:
		return "nullify"
	case CircuitAddressAppend:
		return "address-append"
	default:
		return fmt.Sprintf("circuit(%d)", uint8(c))
	}
}

// CompressedProof is an opaque compressed Groth16 proof.
type CompressedProof struct {
	A [32]byte
	B [64]byte
	C [32]byte
}

// PublicInputs are the values a chunk's proof is checked against. Hash is the
// single field element commitment the circuit exposes; the remaining fields
// are the values it commits to.
type PublicInputs struct {
	Circuit         Circuit
	OldRoot         [32]byte
	NewRoot         [32]byte
	LeavesHashchain [32]byte
	// StartIndex is the first leaf index the chunk writes (append and address
	// append).
	StartIndex   uint64
	ZkpBatchSize uint64
	Hash         [32]byte
}

// Verifier accepts or rejects a proof for a chunk's public inputs.
type Verifier interface {
	Verify(inputs PublicInputs, proof CompressedProof) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(inputs PublicInputs, proof CompressedProof) error

func (f VerifierFunc) Verify(inputs PublicInputs, proof CompressedProof) error {
	return f(inputs, proof)
}

var ErrProofRejected = errors.New("batchedtree: verifier rejects every proof")

var (
	// AcceptAll accepts every proof. It is for tests and simulation.
	AcceptAll Verifier = VerifierFunc(func(PublicInputs, CompressedProof) error { return nil })
	// RejectAll is the verifier used when none is configured.
	RejectAll Verifier = VerifierFunc(func(PublicInputs, CompressedProof) error { return ErrProofRejected })
)
