package bcd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDelta(t *testing.T) {
	delta := InitDelta(4)
	assert.Equal(t, []float32{1, 1, 1, 1}, delta)
	assert.Empty(t, InitDelta(0))
}

func TestUpdateDelta(t *testing.T) {
	var bound float32

	UpdateDelta(0, &bound)
	assert.InDelta(t, 0.1, bound, 1e-6)

	UpdateDelta(0.5, &bound)
	assert.InDelta(t, 1.1, bound, 1e-6)

	// Sign of the observed step does not matter.
	UpdateDelta(-0.5, &bound)
	assert.InDelta(t, 1.1, bound, 1e-6)

	// Capped at the maximum.
	UpdateDelta(100, &bound)
	assert.Equal(t, DeltaMax, bound)
}

func TestUpdateDeltaRangeAndMonotonicity(t *testing.T) {
	steps := []float32{0, 0.01, 0.05, 0.3, 1, 2.45, 3, 1000}
	prev := float32(0)
	for _, s := range steps {
		var bound float32
		UpdateDelta(s, &bound)
		assert.GreaterOrEqual(t, bound, float32(0.1))
		assert.LessOrEqual(t, bound, DeltaMax)
		assert.GreaterOrEqual(t, bound, prev, "bound must not shrink for a larger step")
		prev = bound
	}
}
