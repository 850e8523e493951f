package checkpoint

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func testGenerateECKey(t *testing.T, curve elliptic.Curve) *ecdsa.PrivateKey {
	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	return privateKey
}

func testNewRootSigner(t *testing.T, issuer string) RootSigner {
	cborCodec, err := NewCodec()
	require.NoError(t, err)
	return NewRootSigner(issuer, cborCodec)
}

func TestRootSigner_Sign1(t *testing.T) {
	logger.New("TEST")
	defer logger.OnExit()

	type args struct {
		subject  string
		state    TreeState
		external []byte
	}
	tests := []struct {
		name    string
		issuer  string
		kid     string
		args    args
		wantErr error
	}{
		{
			name:   "common case P-256 & ES256",
			issuer: "synsation.org",
			kid:    "tree checkpoint key 1",
			args: args{
				subject: "state-tree",
				state: TreeState{
					TreeID:         []byte{0xaa, 0xbb},
					Root:           []byte{1, 2, 3},
					Timestamp:      1234,
					RootIndex:      7,
					SequenceNumber: 9,
					NextIndex:      500,
				},
			},
		},
		{
			name:   "external aad",
			issuer: "synsation.org",
			kid:    "tree checkpoint key 2",
			args: args{
				subject:  "address-tree",
				state:    TreeState{Root: []byte{9}, NextIndex: 1},
				external: []byte("context"),
			},
		},
		{
			name:    "root is required",
			issuer:  "synsation.org",
			kid:     "tree checkpoint key 1",
			args:    args{subject: "state-tree", state: TreeState{SequenceNumber: 1}},
			wantErr: ErrRootMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := testGenerateECKey(t, elliptic.P256())
			rs := testNewRootSigner(t, tt.issuer)

			coseSigner, err := cose.NewSigner(cose.AlgorithmES256, key)
			require.NoError(t, err)

			coseMsg, err := rs.Sign1(coseSigner, tt.kid, tt.args.subject, tt.args.state, tt.args.external)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			signed, state, err := DecodeSignedRoot(rs.codec, coseMsg)
			require.NoError(t, err)
			assert.Nil(t, state.Root)
			assert.Equal(t, tt.args.state.SequenceNumber, state.SequenceNumber)
			assert.Equal(t, tt.args.state.RootIndex, state.RootIndex)
			assert.Equal(t, tt.args.state.NextIndex, state.NextIndex)

			claims, err := ClaimsFromProtectedHeader(signed)
			require.NoError(t, err)
			assert.Equal(t, Claims{Issuer: tt.issuer, Subject: tt.args.subject}, claims)
			kid, err := KeyIDFromProtectedHeader(signed)
			require.NoError(t, err)
			assert.Equal(t, tt.kid, kid)

			provider := NewPublicKeyProvider(signed, key.Public())

			// verification must fail if we haven't put the root in
			err = VerifySignedRoot(rs.codec, provider, signed, state, tt.args.external)
			assert.ErrorIs(t, err, ErrRootMissing)

			state.Root = []byte{0xff}
			err = VerifySignedRoot(rs.codec, provider, signed, state, tt.args.external)
			assert.Error(t, err)

			state.Root = tt.args.state.Root
			err = VerifySignedRoot(rs.codec, provider, signed, state, tt.args.external)
			assert.NoError(t, err)

			err = VerifySignedRoot(rs.codec, provider, signed, state, []byte("other"))
			assert.Error(t, err)
		})
	}
}

func TestVerifySignedRootWrongKey(t *testing.T) {
	key := testGenerateECKey(t, elliptic.P256())
	other := testGenerateECKey(t, elliptic.P256())
	rs := testNewRootSigner(t, "synsation.org")

	coseSigner, err := cose.NewSigner(cose.AlgorithmES256, key)
	require.NoError(t, err)
	state := TreeState{Root: []byte{1}, SequenceNumber: 3}
	coseMsg, err := rs.Sign1(coseSigner, "k", "state-tree", state, nil)
	require.NoError(t, err)

	signed, decoded, err := DecodeSignedRoot(rs.codec, coseMsg)
	require.NoError(t, err)
	decoded.Root = state.Root
	err = VerifySignedRoot(rs.codec, NewPublicKeyProvider(signed, other.Public()), signed, decoded, nil)
	assert.Error(t, err)
}
