package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/sha3"
)

// ValueBytes is the width of every digest and every hash input.
const ValueBytes = 32

type Kind uint8

const (
	KindUnknown Kind = iota
	KindSHA256
	KindKeccak256
	KindMiMCBN254
)

var (
	ErrUnknownKind    = errors.New("hasher: unknown hash kind")
	ErrBadInputSize   = errors.New("hasher: inputs must be 32 bytes")
	ErrNoInputs       = errors.New("hasher: at least one input is required")
	ErrHeightTooLarge = errors.New("hasher: height exceeds the supported maximum")
)

// MaxHeight bounds the tree heights for which zero subtree roots are derived.
const MaxHeight = 64

func (k Kind) String() string {
	switch k {
	case KindSHA256:
		return "sha256"
	case KindKeccak256:
		return "keccak256"
	case KindMiMCBN254:
		return "mimc-bn254"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind maps the names returned by Kind.String back to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "sha256":
		return KindSHA256, nil
	case "keccak256":
		return KindKeccak256, nil
	case "mimc-bn254", "mimc":
		return KindMiMCBN254, nil
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Hasher hashes one or more 32 byte inputs to a 32 byte digest.
type Hasher interface {
	Kind() Kind
	Hashv(inputs ...[]byte) ([32]byte, error)
}

// New returns the Hasher for kind.
func New(kind Kind) (Hasher, error) {
	switch kind {
	case KindSHA256:
		return stdHasher{kind: kind, newHash: sha256.New}, nil
	case KindKeccak256:
		return stdHasher{kind: kind, newHash: sha3.NewLegacyKeccak256}, nil
	case KindMiMCBN254:
		return mimcHasher{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
}

// MustNew is New for statically known kinds.
func MustNew(kind Kind) Hasher {
	h, err := New(kind)
	if err != nil {
		panic(err)
	}
	return h
}

// Uint64Bytes encodes v big endian, right aligned in a 32 byte value.
func Uint64Bytes(v uint64) [32]byte {
	var b [32]byte
	binary.BigEndian.PutUint64(b[24:], v)
	return b
}

// HashPair is the Merkle node hash.
func HashPair(h Hasher, left, right [32]byte) ([32]byte, error) {
	return h.Hashv(left[:], right[:])
}

func checkInputs(inputs [][]byte) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	for _, in := range inputs {
		if len(in) != ValueBytes {
			return fmt.Errorf("%w: got %d", ErrBadInputSize, len(in))
		}
	}
	return nil
}

type stdHasher struct {
	kind    Kind
	newHash func() hash.Hash
}

func (s stdHasher) Kind() Kind { return s.kind }

func (s stdHasher) Hashv(inputs ...[]byte) ([32]byte, error) {
	var out [32]byte
	if err := checkInputs(inputs); err != nil {
		return out, err
	}
	hh := s.newHash()
	for _, in := range inputs {
		hh.Write(in)
	}
	copy(out[:], hh.Sum(nil))
	return out, nil
}

type mimcHasher struct{}

func (mimcHasher) Kind() Kind { return KindMiMCBN254 }

func (mimcHasher) Hashv(inputs ...[]byte) ([32]byte, error) {
	var out [32]byte
	if err := checkInputs(inputs); err != nil {
		return out, err
	}
	hh := mimc.NewMiMC()
	for _, in := range inputs {
		// Reduce into the scalar field, the sponge rejects non canonical blocks.
		var e fr.Element
		e.SetBytes(in)
		b := e.Bytes()
		if _, err := hh.Write(b[:]); err != nil {
			return out, err
		}
	}
	copy(out[:], hh.Sum(nil))
	return out, nil
}
