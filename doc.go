// Package difacto is a factorization-machine trainer built around
// block coordinate descent: the feature space is partitioned into
// contiguous key ranges, each block owns the FTRL weights and adagrad
// embeddings for its range, and blocks advance through training rounds
// under a completion tracker.
//
// The root package carries the cross-cutting pieces: the structured
// Logger used by every layer and the Progress counters the trainer
// aggregates per round. The numeric core lives in sgd, the block
// machinery in bcd, round scheduling in trainer, and durable model
// state in checkpoint on top of blobstore.
package difacto
