package checkpoint

import "errors"

var (
	ErrRootMissing               = errors.New("checkpoint: tree state root is missing")
	ErrNoProtectedHeaderValue    = errors.New("checkpoint: protected header has no value for the label")
	ErrUnexpectedHeaderType      = errors.New("checkpoint: a protected header value has an unexpected type")
	ErrCWTClaimsNoIssuer         = errors.New("checkpoint: cwt claims have no issuer")
	ErrCWTClaimsIssuerNotString  = errors.New("checkpoint: cwt claims issuer is not a string")
	ErrCWTClaimsNoSubject        = errors.New("checkpoint: cwt claims have no subject")
	ErrCWTClaimsSubjectNotString = errors.New("checkpoint: cwt claims subject is not a string")
)
