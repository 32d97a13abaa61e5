package sgd

// Entry is the optimizer state of one feature.
//
// V is nil until the feature's count exceeds the configured threshold; once
// allocated it holds 2*dim floats: the embedding coordinates in V[:dim] and
// the per-coordinate adagrad accumulators (accumulated squared gradients)
// in V[dim:].
type Entry struct {
	// Count is the number of appearances of this feature in the data so far.
	Count float32
	// Weight is the scalar weight w.
	Weight float32
	// SqGrad is the FTRL accumulated squared gradient on w.
	SqGrad float32
	// Z is the FTRL dual average.
	Z float32
	// V holds the embedding and its adagrad accumulators, nil if
	// unallocated.
	V []float32
}

// Embedding returns the embedding coordinates, nil if unallocated.
func (e *Entry) Embedding() []float32 {
	if e.V == nil {
		return nil
	}
	return e.V[:len(e.V)/2]
}

// adagrad returns the per-coordinate accumulators backing the embedding.
func (e *Entry) adagrad() []float32 {
	return e.V[len(e.V)/2:]
}

// isDefault reports whether the entry carries no state worth persisting:
// zero weight, zero FTRL auxiliaries, and no embedding. Counts alone do
// not make an entry persistent.
func (e *Entry) isDefault() bool {
	return e.Weight == 0 && e.SqGrad == 0 && e.Z == 0 && e.V == nil
}
