// Package trainer schedules one round of per-block update jobs on a fixed
// worker pool. Blocks cover disjoint feature-id ranges, so jobs running
// concurrently never touch the same model state; ordering constraints
// between blocks are expressed as dependency lists consumed through a
// completion tracker before a job starts. Iteration across rounds and the
// convergence decision stay with the caller.
package trainer
