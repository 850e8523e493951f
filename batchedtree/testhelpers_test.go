package batchedtree

import (
	"testing"

	"github.com/forestrie/go-batchedtree/batchtesting"
	"github.com/forestrie/go-batchedtree/hasher"
	"github.com/forestrie/go-batchedtree/reftree"
	"github.com/stretchr/testify/require"
)

func testStateParams() Params {
	return Params{
		TreeType:            TreeTypeState,
		Hasher:              hasher.KindSHA256,
		Height:              8,
		CanopyDepth:         2,
		RootHistoryCapacity: 20,
		InputBatchSize:      4,
		InputZkpBatchSize:   2,
		BloomFilterCapacity: 1024,
		BloomFilterNumIters: 3,
		OutputBatchSize:     4,
		OutputZkpBatchSize:  2,
	}
}

func testAddressParams() Params {
	return Params{
		TreeType:            TreeTypeAddress,
		Hasher:              hasher.KindSHA256,
		Height:              8,
		CanopyDepth:         2,
		RootHistoryCapacity: 20,
		InputBatchSize:      4,
		InputZkpBatchSize:   2,
		BloomFilterCapacity: 1024,
		BloomFilterNumIters: 3,
	}
}

func newTestContext(t *testing.T) batchtesting.TestContext {
	return batchtesting.NewTestContext(t, batchtesting.TestConfig{
		Seed:            1698342521,
		TestLabelPrefix: t.Name(),
		LogLevel:        "NOOP",
	})
}

// countingVerifier accepts every proof and records the inputs it was shown.
func countingVerifier(tc *batchtesting.TestContext, seen *[]PublicInputs) Verifier {
	return VerifierFunc(func(inputs PublicInputs, proof CompressedProof) error {
		tc.Calls.IncMethodCall(inputs.Circuit.String())
		*seen = append(*seen, inputs)
		return nil
	})
}

func newStateTree(t *testing.T, p Params, opts ...Option) *StateTree {
	t.Helper()
	n, err := RegionBytes(p)
	require.NoError(t, err)
	s, err := InitStateTree(make([]byte, n), p, opts...)
	require.NoError(t, err)
	return s
}

func newAddressTree(t *testing.T, p Params, opts ...Option) *AddressTree {
	t.Helper()
	n, err := RegionBytes(p)
	require.NoError(t, err)
	a, err := InitAddressTree(make([]byte, n), p, opts...)
	require.NoError(t, err)
	return a
}

// applyOutputWithReference appends the ready output chunk to ref and applies
// it to s with ref's new root.
func applyOutputWithReference(t *testing.T, s *StateTree, ref *reftree.Tree) Event {
	t.Helper()
	leaves, err := s.OutputChunkLeaves()
	require.NoError(t, err)
	for _, l := range leaves {
		_, err := ref.Append(l)
		require.NoError(t, err)
	}
	root, err := ref.Root()
	require.NoError(t, err)
	e, err := s.ApplyOutputChunk(AppendChunkRequest{NewRoot: root})
	require.NoError(t, err)
	return e
}

// fakeRoot is a distinct non sentinel root for chunks whose root is not
// checked.
func fakeRoot(i uint64) [32]byte {
	r := hasher.Uint64Bytes(i + 1)
	r[0] = 0xee
	return r
}
