// Package reftree is an in memory fixed height Merkle tree. It computes the
// roots a prover would produce for the chunks of a batched tree, for tests
// and simulation.
package reftree

import (
	"errors"
	"fmt"

	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/prysmaticlabs/gohashtree"
)

var (
	ErrFull            = errors.New("reftree: the tree is full")
	ErrIndexOutOfRange = errors.New("reftree: leaf index out of range")
	ErrTooManyLeaves   = errors.New("reftree: more leaves than the height admits")
)

// Tree holds the leaves densely up to NextIndex. Leaves past NextIndex are
// zero.
type Tree struct {
	h      hasher.Hasher
	height uint8
	leaves [][32]byte
}

func New(h hasher.Hasher, height uint8) (*Tree, error) {
	if height > hasher.MaxHeight {
		return nil, hasher.ErrHeightTooLarge
	}
	return &Tree{h: h, height: height}, nil
}

func (t *Tree) Height() uint8     { return t.height }
func (t *Tree) NextIndex() uint64 { return uint64(len(t.leaves)) }

func (t *Tree) capacity() uint64 {
	if t.height >= 64 {
		return ^uint64(0)
	}
	return uint64(1) << t.height
}

// Append sets the leaf at NextIndex and returns its index.
func (t *Tree) Append(leaf [32]byte) (uint64, error) {
	if t.NextIndex() >= t.capacity() {
		return 0, ErrFull
	}
	t.leaves = append(t.leaves, leaf)
	return uint64(len(t.leaves) - 1), nil
}

// Update replaces an appended leaf.
func (t *Tree) Update(index uint64, leaf [32]byte) error {
	if index >= t.NextIndex() {
		return fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, t.NextIndex())
	}
	t.leaves[index] = leaf
	return nil
}

func (t *Tree) Leaf(index uint64) ([32]byte, error) {
	if index >= t.NextIndex() {
		return [32]byte{}, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, t.NextIndex())
	}
	return t.leaves[index], nil
}

func (t *Tree) Root() ([32]byte, error) {
	return RootOf(t.h, t.height, t.leaves)
}

// RootOf computes the root of a tree of the given height whose first leaves
// are leaves and whose remaining leaves are zero.
func RootOf(h hasher.Hasher, height uint8, leaves [][32]byte) ([32]byte, error) {
	zeros, err := hasher.ZeroBytes(h, height)
	if err != nil {
		return [32]byte{}, err
	}
	if height < 64 && uint64(len(leaves)) > uint64(1)<<height {
		return [32]byte{}, fmt.Errorf("%w: %d leaves for height %d", ErrTooManyLeaves, len(leaves), height)
	}
	if len(leaves) == 0 {
		return zeros[height], nil
	}

	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	for i := 0; i < int(height); i++ {
		if len(level)%2 == 1 {
			level = append(level, zeros[i])
		}
		next := make([][32]byte, len(level)/2)
		if err := hashLevel(h, next, level); err != nil {
			return [32]byte{}, err
		}
		level = next
	}
	return level[0], nil
}

// hashLevel writes the parents of the node pairs in level to next. SHA-256
// levels are hashed in bulk.
func hashLevel(h hasher.Hasher, next, level [][32]byte) error {
	if h.Kind() == hasher.KindSHA256 {
		return gohashtree.Hash(next, level)
	}
	for j := range next {
		node, err := hasher.HashPair(h, level[2*j], level[2*j+1])
		if err != nil {
			return err
		}
		next[j] = node
	}
	return nil
}
