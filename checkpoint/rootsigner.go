package checkpoint

import (
	"crypto/rand"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	"github.com/veraison/go-cose"
)

// RootSigner produces signatures over tree states. A state should only be
// signed after checking it is consistent with the last signed state.
type RootSigner struct {
	issuer string
	codec  dtcbor.CBORCodec
}

func NewRootSigner(issuer string, codec dtcbor.CBORCodec) RootSigner {
	return RootSigner{issuer: issuer, codec: codec}
}

// Sign1 signs the CBOR encoding of state and returns the encoded COSE Sign1
// message. The signature covers the root but the published payload omits
// it, so a verifier has to read the root from the tree's root history.
func (rs RootSigner) Sign1(
	coseSigner cose.Signer, keyIdentifier string, subject string, state TreeState, external []byte,
) ([]byte, error) {
	if len(state.Root) == 0 {
		return nil, ErrRootMissing
	}
	signed, err := rs.codec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}
	state.Root = nil
	published, err := rs.codec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(coseSigner.Algorithm())
	msg.Headers.Protected[cose.HeaderLabelKeyID] = []byte(keyIdentifier)
	msg.Headers.Protected[HeaderLabelCWTClaims] = newCWTClaims(rs.issuer, subject)
	msg.Payload = signed
	if err := msg.Sign(rand.Reader, external, coseSigner); err != nil {
		return nil, err
	}
	msg.Payload = published
	return msg.MarshalCBOR()
}
