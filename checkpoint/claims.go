package checkpoint

import (
	"fmt"

	"github.com/ldclabs/cose/go/cwt"
	"github.com/veraison/go-cose"
)

const (
	HeaderLabelCWTClaimsDraft int64 = 13
	HeaderLabelCWTClaims      int64 = 15
)

// Claims are the CWT claims bound into the protected header of a checkpoint.
type Claims struct {
	Issuer  string
	Subject string
}

func newCWTClaims(issuer, subject string) map[int64]any {
	return map[int64]any{
		int64(cwt.KeyIss): issuer,
		int64(cwt.KeySub): subject,
	}
}

func valueFromProtectedHeader(msg *cose.Sign1Message, label int64) (any, error) {
	value, ok := msg.Headers.Protected[label]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoProtectedHeaderValue, label)
	}
	return value, nil
}

// claimValue looks a claim up by its integer key. Decoded maps may carry
// the key as either signed or unsigned.
func claimValue(claims any, key int64) (any, bool) {
	switch m := claims.(type) {
	case map[int64]any:
		v, ok := m[key]
		return v, ok
	case map[any]any:
		if v, ok := m[key]; ok {
			return v, true
		}
		if key >= 0 {
			v, ok := m[uint64(key)]
			return v, ok
		}
	}
	return nil, false
}

// ClaimsFromProtectedHeader reads the issuer and subject of a signed
// checkpoint.
func ClaimsFromProtectedHeader(msg *cose.Sign1Message) (Claims, error) {
	raw, err := valueFromProtectedHeader(msg, HeaderLabelCWTClaims)
	if err != nil {
		if raw, err = valueFromProtectedHeader(msg, HeaderLabelCWTClaimsDraft); err != nil {
			return Claims{}, err
		}
	}
	switch raw.(type) {
	case map[int64]any, map[any]any:
	default:
		return Claims{}, fmt.Errorf("%w: cwt claims are %T", ErrUnexpectedHeaderType, raw)
	}

	issuer, ok := claimValue(raw, int64(cwt.KeyIss))
	if !ok {
		return Claims{}, ErrCWTClaimsNoIssuer
	}
	issuerStr, ok := issuer.(string)
	if !ok {
		return Claims{}, ErrCWTClaimsIssuerNotString
	}
	subject, ok := claimValue(raw, int64(cwt.KeySub))
	if !ok {
		return Claims{}, ErrCWTClaimsNoSubject
	}
	subjectStr, ok := subject.(string)
	if !ok {
		return Claims{}, ErrCWTClaimsSubjectNotString
	}
	return Claims{Issuer: issuerStr, Subject: subjectStr}, nil
}

// KeyIDFromProtectedHeader reads the key identifier the checkpoint was signed
// with.
func KeyIDFromProtectedHeader(msg *cose.Sign1Message) (string, error) {
	kid, err := valueFromProtectedHeader(msg, cose.HeaderLabelKeyID)
	if err != nil {
		return "", err
	}
	kidBytes, ok := kid.([]byte)
	if !ok {
		return "", fmt.Errorf("%w: kid is %T", ErrUnexpectedHeaderType, kid)
	}
	return string(kidBytes), nil
}
