package batch

import "errors"

var (
	ErrBatchNotReady        = errors.New("batch: not in a state that permits the operation")
	ErrBatchAlreadyInserted = errors.New("batch: every chunk has already been inserted")
	ErrLeafIndexNotInBatch  = errors.New("batch: leaf index is not covered by the batch")
	ErrBadRecordSize        = errors.New("batch: record buffer has the wrong size")
	ErrBadState             = errors.New("batch: record holds an unknown state")
)
