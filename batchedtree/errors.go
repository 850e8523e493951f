package batchedtree

import (
	"errors"

	"github.com/forestrie/go-batchedtree/batch"
	"github.com/forestrie/go-batchedtree/bloom"
	"github.com/forestrie/go-batchedtree/hashchain"
	"github.com/forestrie/go-batchedtree/queue"
	"github.com/forestrie/go-batchedtree/roothistory"
)

var (
	ErrInvalidParams           = errors.New("batchedtree: invalid tree parameters")
	ErrRegionSize              = errors.New("batchedtree: region size does not match the tree parameters")
	ErrBadMagic                = errors.New("batchedtree: region header does not carry the tree magic")
	ErrBadVersion              = errors.New("batchedtree: region header version is not supported")
	ErrWrongTreeType           = errors.New("batchedtree: region holds a different type of tree")
	ErrTreeFull                = errors.New("batchedtree: tree cannot take more leaves")
	ErrProofVerificationFailed = errors.New("batchedtree: proof was rejected for the chunk's public inputs")
	ErrInvalidRoot             = errors.New("batchedtree: new root is the invalidated root sentinel")
	ErrLeafIndexOutOfRange     = errors.New("batchedtree: leaf index has not been appended")
)

// IsCapacityError is true for failures that clear once the queues make
// progress.
func IsCapacityError(err error) bool {
	return errors.Is(err, batch.ErrBatchNotReady) ||
		errors.Is(err, bloom.ErrFull) ||
		errors.Is(err, hashchain.ErrStoreFull) ||
		errors.Is(err, ErrTreeFull)
}

// IsConsistencyError is true when the request contradicts the state of the
// region.
func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrProofVerificationFailed) ||
		errors.Is(err, ErrInvalidRoot) ||
		errors.Is(err, ErrLeafIndexOutOfRange) ||
		errors.Is(err, queue.ErrDuplicateValue) ||
		errors.Is(err, queue.ErrInclusionProofByIndexFailed)
}

// IsConstructionError is true when a region could not be formatted or opened.
func IsConstructionError(err error) bool {
	return errors.Is(err, ErrInvalidParams) ||
		errors.Is(err, ErrRegionSize) ||
		errors.Is(err, ErrBadMagic) ||
		errors.Is(err, ErrBadVersion) ||
		errors.Is(err, ErrWrongTreeType) ||
		errors.Is(err, queue.ErrInvalidParams) ||
		errors.Is(err, queue.ErrBadRegionSize) ||
		errors.Is(err, queue.ErrCorruptHeader) ||
		errors.Is(err, roothistory.ErrBadRegionSize) ||
		errors.Is(err, roothistory.ErrCorruptHeader)
}
