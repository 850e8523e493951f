package checkpoint

import (
	"crypto"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/veraison/go-cose"
)

// KeyProvider supplies the key and algorithm a signed checkpoint is verified
// with.
type KeyProvider interface {
	PublicKey() (crypto.PublicKey, cose.Algorithm, error)
}

// PublicKeyProvider pairs a known public key with the algorithm named in the
// message's protected header.
type PublicKeyProvider struct {
	msg       *cose.Sign1Message
	publicKey crypto.PublicKey
}

func NewPublicKeyProvider(msg *cose.Sign1Message, publicKey crypto.PublicKey) *PublicKeyProvider {
	return &PublicKeyProvider{msg: msg, publicKey: publicKey}
}

func (p *PublicKeyProvider) PublicKey() (crypto.PublicKey, cose.Algorithm, error) {
	algorithm, err := p.msg.Headers.Protected.Algorithm()
	if err != nil {
		return nil, cose.Algorithm(0), err
	}
	return p.publicKey, algorithm, nil
}

// DecodeSignedRoot decodes the TreeState from a signed checkpoint. The state
// will not verify until its root has been restored.
func DecodeSignedRoot(codec dtcbor.CBORCodec, msg []byte) (*cose.Sign1Message, TreeState, error) {
	var signed cose.Sign1Message
	if err := signed.UnmarshalCBOR(msg); err != nil {
		return nil, TreeState{}, err
	}
	var unverifiedState TreeState
	if err := codec.UnmarshalInto(signed.Payload, &unverifiedState); err != nil {
		return nil, TreeState{}, err
	}
	return &signed, unverifiedState, nil
}

// VerifySignedRoot applies unverifiedState to the signed message and verifies
// the result.
//
// Verification is a 3 step process:
//  1. Use DecodeSignedRoot to obtain the TreeState from the signed message.
//  2. Read the root at TreeState.RootIndex from the tree's root history and
//     check it is the root for TreeState.SequenceNumber.
//  3. Set TreeState.Root and call this function.
func VerifySignedRoot(
	codec dtcbor.CBORCodec, keyProvider KeyProvider, signed *cose.Sign1Message, unverifiedState TreeState, external []byte,
) error {
	if unverifiedState.Root == nil {
		return ErrRootMissing
	}
	publicKey, algorithm, err := keyProvider.PublicKey()
	if err != nil {
		return err
	}
	verifier, err := cose.NewVerifier(algorithm, publicKey)
	if err != nil {
		return err
	}
	if signed.Payload, err = codec.MarshalCBOR(unverifiedState); err != nil {
		return err
	}
	return signed.Verify(external, verifier)
}
