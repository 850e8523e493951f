// Package checkpoint signs and verifies commitments to a batched tree's state.
//
// A checkpoint is a COSE Sign1 message whose payload is the CBOR encoded
// TreeState. The root is removed from the payload after signing, so a
// verifier must obtain the root from the tree itself (its root history) and
// put it back before the signature will verify.
package checkpoint
