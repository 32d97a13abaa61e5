// Package bcd provides the feature-space partitioning and worker
// coordination primitives for block-coordinate-descent training.
//
// The feature-id space is split into sorted, contiguous, non-overlapping
// blocks (Partition), each block is located inside a sorted id list
// (FindPosition), and independent workers signal and await block completion
// through a BlockTracker. GroupStats sizes the per-group partition counts
// from sampled row data, and Delta maintains the per-coordinate trust-region
// bounds that keep BCD rounds numerically stable.
//
// Nothing in this package touches model state; the non-overlap guarantee of
// Partition is what makes lock-free per-block weight updates safe.
package bcd
