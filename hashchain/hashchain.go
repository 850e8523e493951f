package hashchain

import (
	"errors"

	"github.com/forestrie/go-batchedtree/hasher"
)

var ErrNoValues = errors.New("hashchain: at least one value is required")

// Extend folds value into chain.
func Extend(h hasher.Hasher, chain, value [32]byte) ([32]byte, error) {
	return h.Hashv(chain[:], value[:])
}

// Of returns the chain over values. The first value is the seed.
func Of(h hasher.Hasher, values ...[32]byte) ([32]byte, error) {
	if len(values) == 0 {
		return [32]byte{}, ErrNoValues
	}
	chain := values[0]
	for _, v := range values[1:] {
		var err error
		if chain, err = Extend(h, chain, v); err != nil {
			return [32]byte{}, err
		}
	}
	return chain, nil
}

// Next returns the digest the store would hold for the current chunk after
// value is added, without mutating the store. startNew selects the first
// value of a fresh chunk, in which case the digest is value itself.
func Next(h hasher.Hasher, s Store, startNew bool, value [32]byte) ([32]byte, error) {
	if startNew {
		if s.Len() >= s.Cap() {
			return [32]byte{}, ErrStoreFull
		}
		return value, nil
	}
	last, ok := s.Last()
	if !ok {
		return [32]byte{}, ErrStoreEmpty
	}
	return Extend(h, last, value)
}

// Commit writes the digest produced by Next.
func Commit(s Store, startNew bool, digest [32]byte) error {
	if startNew {
		return s.Push(digest)
	}
	return s.SetLast(digest)
}
