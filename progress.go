package difacto

import (
	"math"
	"sync/atomic"
)

// Progress is a snapshot of training counters, merged across workers at
// round boundaries and reported to the driver deciding convergence.
type Progress struct {
	// NonzeroWeights is the net number of weights moved away from zero by
	// FTRL updates (transitions to zero subtract).
	NonzeroWeights int64

	// Embeddings is the number of embedding vectors allocated so far.
	Embeddings int64

	// Examples is the number of training rows consumed.
	Examples int64

	// Objective is the accumulated loss over the counted examples.
	Objective float64
}

// Merge adds another snapshot into p.
func (p *Progress) Merge(other Progress) {
	p.NonzeroWeights += other.NonzeroWeights
	p.Embeddings += other.Embeddings
	p.Examples += other.Examples
	p.Objective += other.Objective
}

// ProgressObserver receives progress snapshots. Implement this interface
// to integrate with monitoring systems like Prometheus.
type ProgressObserver interface {
	// ObserveBlock is called after each block update with that block's
	// contribution.
	ObserveBlock(block int, p Progress)

	// ObserveRound is called after each full round with the merged
	// progress of all blocks.
	ObserveRound(epoch int, p Progress)
}

// NoopProgressObserver discards all observations.
type NoopProgressObserver struct{}

func (NoopProgressObserver) ObserveBlock(int, Progress) {}
func (NoopProgressObserver) ObserveRound(int, Progress) {}

// ProgressTracker provides simple in-memory progress aggregation.
// Useful for debugging and basic monitoring without external dependencies.
type ProgressTracker struct {
	blocks         atomic.Int64
	rounds         atomic.Int64
	nonzeroWeights atomic.Int64
	embeddings     atomic.Int64
	examples       atomic.Int64
	objectiveBits  atomic.Uint64
}

// ObserveBlock implements ProgressObserver.
func (t *ProgressTracker) ObserveBlock(block int, p Progress) {
	t.blocks.Add(1)
	t.examples.Add(p.Examples)
	t.addObjective(p.Objective)
}

// ObserveRound implements ProgressObserver. Weight and embedding counts
// are absolute per round, so the round snapshot replaces them.
func (t *ProgressTracker) ObserveRound(epoch int, p Progress) {
	t.rounds.Add(1)
	t.nonzeroWeights.Store(p.NonzeroWeights)
	t.embeddings.Store(p.Embeddings)
}

func (t *ProgressTracker) addObjective(v float64) {
	for {
		old := t.objectiveBits.Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if t.objectiveBits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Stats returns a snapshot of the tracked counters.
func (t *ProgressTracker) Stats() ProgressStats {
	return ProgressStats{
		Blocks:         t.blocks.Load(),
		Rounds:         t.rounds.Load(),
		NonzeroWeights: t.nonzeroWeights.Load(),
		Embeddings:     t.embeddings.Load(),
		Examples:       t.examples.Load(),
		Objective:      math.Float64frombits(t.objectiveBits.Load()),
	}
}

// ProgressStats is a snapshot of ProgressTracker state.
type ProgressStats struct {
	Blocks         int64
	Rounds         int64
	NonzeroWeights int64
	Embeddings     int64
	Examples       int64
	Objective      float64
}
