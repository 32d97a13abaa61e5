package bcd

import "math"

const (
	// DeltaInit is the initial per-coordinate trust-region bound.
	DeltaInit float32 = 1.0
	// DeltaMax caps the bound to keep steps from running away.
	DeltaMax float32 = 5.0
	// deltaFloor keeps a coordinate from stalling after a tiny step.
	deltaFloor float32 = 0.1
)

// InitDelta allocates n trust-region bounds, all set to DeltaInit.
func InitDelta(n int) []float32 {
	delta := make([]float32, n)
	for i := range delta {
		delta[i] = DeltaInit
	}
	return delta
}

// UpdateDelta derives the next round's bound from the step a coordinate
// actually took: twice the observed move plus a small floor, capped at
// DeltaMax. The bound shrinks when the coordinate settles and widens when
// it is still moving, which keeps L1-regularized BCD stable.
func UpdateDelta(observedDelta float32, bound *float32) {
	*bound = float32(math.Min(float64(DeltaMax), math.Abs(float64(observedDelta))*2+float64(deltaFloor)))
}
