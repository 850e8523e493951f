package batchedtree

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-batchedtree/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func TestEventEncoding(t *testing.T) {
	tc := newTestContext(t)
	defer logger.OnExit()

	s := newStateTree(t, testStateParams(), WithVerifier(AcceptAll))
	for _, v := range tc.Values(4) {
		_, err := s.AppendLeaf(v)
		require.NoError(t, err)
	}
	e, err := s.ApplyOutputChunk(AppendChunkRequest{NewRoot: fakeRoot(1)})
	require.NoError(t, err)

	codec, err := NewEventCodec()
	require.NoError(t, err)
	data, err := EncodeEvent(codec, e)
	require.NoError(t, err)
	got, err := DecodeEvent(codec, data)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	id := s.TreeID()
	assert.Equal(t, id[:], got.TreeID)
	assert.Equal(t, "batch-append", got.Kind.String())
}

// TestSignedCheckpoint signs a tree state and verifies it with the root read
// back from the tree's root history.
func TestSignedCheckpoint(t *testing.T) {
	tc := newTestContext(t)
	defer logger.OnExit()

	now := time.UnixMilli(1698342521000)
	s := newStateTree(t, testStateParams(), WithVerifier(AcceptAll), WithClock(func() time.Time { return now }))
	for _, v := range tc.Values(4) {
		_, err := s.AppendLeaf(v)
		require.NoError(t, err)
	}
	_, err := s.ApplyOutputChunk(AppendChunkRequest{NewRoot: fakeRoot(1)})
	require.NoError(t, err)

	state := s.State()
	assert.Equal(t, now.UnixMilli(), state.Timestamp)
	assert.Equal(t, uint64(1), state.SequenceNumber)
	assert.Equal(t, uint64(2), state.NextIndex)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	require.NoError(t, err)
	codec, err := checkpoint.NewCodec()
	require.NoError(t, err)
	rs := checkpoint.NewRootSigner("synsation.org", codec)

	msg, err := rs.Sign1(signer, "checkpoint key 1", s.TreeID().String(), state, nil)
	require.NoError(t, err)

	signed, unverified, err := checkpoint.DecodeSignedRoot(codec, msg)
	require.NoError(t, err)
	root, err := s.RootHistory().Get(unverified.RootIndex)
	require.NoError(t, err)
	unverified.Root = root[:]
	err = checkpoint.VerifySignedRoot(codec, checkpoint.NewPublicKeyProvider(signed, key.Public()), signed, unverified, nil)
	assert.NoError(t, err)
}
