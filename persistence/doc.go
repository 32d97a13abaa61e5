// Package persistence defines the binary snapshot format for model state.
//
// A snapshot is a fixed little-endian file header, a payload of per-feature
// records (optionally lz4- or zstd-compressed as a whole), and a CRC32
// trailer over the payload bytes. Only features with non-default state are
// recorded, so file size tracks the number of learned weights rather than
// the size of the id space.
//
// The format is exactly round-trippable: writing a set of records and
// reading them back yields identical weights, auxiliaries, and embeddings.
package persistence
