package core

import (
	"errors"
	"fmt"
)

// ErrMalformedBatch is returned when a row batch violates its CSR layout.
var ErrMalformedBatch = errors.New("malformed row batch")

// RowBatch is a compressed-sparse-row view of example rows. Each row is an
// ordered list of feature ids; Values and Labels are optional side arrays
// carried for callers, the core only consumes row counts and id lists.
//
//	row i ids:    Index[Offsets[i]:Offsets[i+1]]
//	row i values: Values[Offsets[i]:Offsets[i+1]]  (when Values != nil)
type RowBatch struct {
	Offsets []int
	Index   []FeatureID
	Values  []float32
	Labels  []float32
}

// NumRows returns the number of rows in the batch.
func (b RowBatch) NumRows() int {
	if len(b.Offsets) == 0 {
		return 0
	}
	return len(b.Offsets) - 1
}

// Row returns the feature ids of row i.
func (b RowBatch) Row(i int) []FeatureID {
	return b.Index[b.Offsets[i]:b.Offsets[i+1]]
}

// Validate checks the CSR layout: monotone offsets bounded by len(Index),
// and side arrays sized to the ids/rows they annotate.
func (b RowBatch) Validate() error {
	if len(b.Offsets) == 0 {
		if len(b.Index) != 0 {
			return fmt.Errorf("%w: ids without offsets", ErrMalformedBatch)
		}
		return nil
	}
	if b.Offsets[0] != 0 {
		return fmt.Errorf("%w: offsets must start at 0, got %d", ErrMalformedBatch, b.Offsets[0])
	}
	for i := 1; i < len(b.Offsets); i++ {
		if b.Offsets[i] < b.Offsets[i-1] {
			return fmt.Errorf("%w: offsets decrease at row %d", ErrMalformedBatch, i-1)
		}
	}
	if last := b.Offsets[len(b.Offsets)-1]; last != len(b.Index) {
		return fmt.Errorf("%w: offsets end at %d, have %d ids", ErrMalformedBatch, last, len(b.Index))
	}
	if b.Values != nil && len(b.Values) != len(b.Index) {
		return fmt.Errorf("%w: %d values for %d ids", ErrMalformedBatch, len(b.Values), len(b.Index))
	}
	if b.Labels != nil && len(b.Labels) != b.NumRows() {
		return fmt.Errorf("%w: %d labels for %d rows", ErrMalformedBatch, len(b.Labels), b.NumRows())
	}
	return nil
}
