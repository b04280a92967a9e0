// Package rewrite drives the batched AI pass over segments that read too fast
// for a timing fix alone.
//
// The Coordinator sends fixed-size batches to an Oracle one at a time, merges
// each answer back into the shared document by segment index, and stops at
// the first failed batch or at the first batch boundary after cancellation.
package rewrite
