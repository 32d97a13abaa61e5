// Package testutil provides testing utilities for difacto.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random number generator and
// generators for synthetic training data in the row-batch layout.
//
// # Random Generation
//
//	rng := testutil.NewRNG(seed)
//	ids := rng.SortedFeatureIDs(100, r)          // distinct, ascending, in r
//	batch := rng.RowBatch(64, 8, r)              // 64 rows, ~8 ids each
package testutil
