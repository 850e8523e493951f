// Package hashchain folds ordered 32 byte values into a single rolling digest
// and keeps one such digest per proof sized chunk in a fixed capacity store.
//
// The chain over v0, v1, ..., vn is
//
//	c0 = v0
//	ci = H(c(i-1) || vi)
//
// so a chain over a single value is the value itself.
package hashchain
