// Package batchedtree maintains batched append and nullify Merkle trees over
// a single caller owned byte region.
//
// A region holds a header, the root history and the tree's queues. Leaves are
// queued by the insert operations and become part of the tree when the root
// produced by a validity proof over a proof sized chunk of a full batch is
// applied. The engine performs no internal locking: callers serialize access
// to a region.
//
// The StateTree keeps an output queue (appended leaves) and an input queue
// (nullifiers). The AddressTree keeps a single address queue whose values are
// unique across both of its batches.
package batchedtree
