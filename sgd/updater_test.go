package sgd

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llebel/difacto/core"
)

func newTestUpdater(t *testing.T, mutate func(*Config)) *Updater {
	t.Helper()
	cfg := validConfig(0)
	if mutate != nil {
		mutate(&cfg)
	}
	u, err := NewUpdater(cfg, 0, 1<<20)
	require.NoError(t, err)
	return u
}

func TestNewUpdaterValidates(t *testing.T) {
	cfg := validConfig(2)
	cfg.Lr = 0
	_, err := NewUpdater(cfg, 0, 100)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewUpdater(validConfig(2), 100, 50)
	assert.Error(t, err)
}

func TestGetWeightLazilyCreatesEntries(t *testing.T) {
	u := newTestUpdater(t, nil)
	ids := []core.FeatureID{5, 9, 2}

	values, offsets, err := u.Get(ids, ValueWeight)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, values)
	assert.Equal(t, []int32{0, 1, 2, 3}, offsets)
}

func TestGetFeatureCountFlatLayout(t *testing.T) {
	u := newTestUpdater(t, nil)
	ids := []core.FeatureID{1, 2}
	require.NoError(t, u.Update(ids, ValueFeatureCount, []float32{3, 5}, nil))

	values, offsets, err := u.Get(ids, ValueFeatureCount)
	require.NoError(t, err)
	assert.Nil(t, offsets)
	assert.Equal(t, []float32{3, 5}, values)
}

func TestGetRejectsUnknownValueType(t *testing.T) {
	u := newTestUpdater(t, nil)
	_, _, err := u.Get([]core.FeatureID{1}, ValueType(99))
	assert.ErrorIs(t, err, ErrInvalidValueType)
	assert.ErrorIs(t, u.Update(nil, ValueType(99), nil, nil), ErrInvalidValueType)
}

func TestUpdateWExactSparsity(t *testing.T) {
	// l1=1 and a small gradient: |z| stays within the l1 budget, so the
	// closed form must produce exactly zero, not a small number.
	u := newTestUpdater(t, nil)
	ids := []core.FeatureID{1}

	require.NoError(t, u.Update(ids, ValueWeight, []float32{0.5}, []int32{0, 1}))

	e := u.Model().Lookup(1)
	assert.InDelta(t, 0.5, e.Z, 1e-6)
	assert.Equal(t, float32(0), e.Weight)
	assert.Equal(t, Progress{}, u.Progress())
}

func TestUpdateWClosedForm(t *testing.T) {
	// State z=2, accum=4 with l1=1, lr=0.01, lr_beta=1, l2=0:
	// w = -(2 - 1) / ((sqrt(4) + 1)/0.01) = -1/300.
	u := newTestUpdater(t, nil)
	e := u.Model().Lookup(1)
	e.SqGrad = 4
	e.Z = 2

	require.NoError(t, u.Update([]core.FeatureID{1}, ValueWeight, []float32{0}, []int32{0, 1}))

	want := -1.0 / 300.0
	assert.InDelta(t, want, e.Weight, 1e-9)
	assert.Equal(t, float32(4), e.SqGrad)
	assert.Equal(t, float32(2), e.Z)
	assert.Equal(t, Progress{NonzeroWeights: 1}, u.Progress())
}

func TestUpdateWZeroGradientIdempotent(t *testing.T) {
	u := newTestUpdater(t, nil)
	e := u.Model().Lookup(1)
	e.SqGrad = 4
	e.Z = 2

	for i := 0; i < 5; i++ {
		require.NoError(t, u.Update([]core.FeatureID{1}, ValueWeight, []float32{0}, []int32{0, 1}))
	}
	assert.Equal(t, float32(4), e.SqGrad)
	assert.Equal(t, float32(2), e.Z)
	assert.InDelta(t, -1.0/300.0, e.Weight, 1e-9)
}

func TestUpdateWNonzeroTransitions(t *testing.T) {
	u := newTestUpdater(t, func(c *Config) { c.L1 = 0.1 })

	require.NoError(t, u.Update([]core.FeatureID{1}, ValueWeight, []float32{2}, []int32{0, 1}))
	assert.Equal(t, int64(1), u.Progress().NonzeroWeights)

	// Pulling z back inside the l1 budget zeroes the weight again.
	e := u.Model().Lookup(1)
	e.Z = 0
	require.NoError(t, u.Update([]core.FeatureID{1}, ValueWeight, []float32{0}, []int32{0, 1}))
	assert.Equal(t, int64(0), u.Progress().NonzeroWeights)
}

func TestUpdateMalformedOffsetsPanics(t *testing.T) {
	u := newTestUpdater(t, nil)
	assert.Panics(t, func() {
		_ = u.Update([]core.FeatureID{1}, ValueWeight, []float32{0.5}, []int32{0, 2})
	})
	assert.Panics(t, func() {
		_ = u.Update([]core.FeatureID{1, 2}, ValueWeight, []float32{0.5, 0.5}, []int32{0, 1})
	})
	assert.Panics(t, func() {
		_ = u.Update([]core.FeatureID{1, 2}, ValueFeatureCount, []float32{1}, nil)
	})
}

func embeddingUpdater(t *testing.T, seed uint64) *Updater {
	t.Helper()
	cfg := validConfig(4)
	cfg.VThreshold = 2
	cfg.Seed = seed
	u, err := NewUpdater(cfg, 0, 1<<20)
	require.NoError(t, err)
	return u
}

func TestInitVAllocatesPastThreshold(t *testing.T) {
	u := embeddingUpdater(t, 0)
	ids := []core.FeatureID{1}

	require.NoError(t, u.Update(ids, ValueFeatureCount, []float32{2}, nil))
	assert.Nil(t, u.Model().Lookup(1).V, "count at threshold must not allocate")

	require.NoError(t, u.Update(ids, ValueFeatureCount, []float32{1}, nil))
	e := u.Model().Lookup(1)
	require.NotNil(t, e.V)
	assert.Len(t, e.V, 8)
	assert.Equal(t, int64(1), u.Progress().Embeddings)

	for _, v := range e.Embedding() {
		assert.LessOrEqual(t, math.Abs(float64(v)), float64(u.cfg.VInitScale))
	}
	for _, a := range e.adagrad() {
		assert.Zero(t, a)
	}
}

func TestInitVReproducibleAcrossRuns(t *testing.T) {
	run := func() []float32 {
		u := embeddingUpdater(t, 42)
		require.NoError(t, u.Update([]core.FeatureID{1, 2}, ValueFeatureCount, []float32{3, 3}, nil))
		out := append([]float32{}, u.Model().Lookup(1).Embedding()...)
		return append(out, u.Model().Lookup(2).Embedding()...)
	}
	assert.Equal(t, run(), run(), "same seed and call order must reproduce the init")

	other := embeddingUpdater(t, 43)
	require.NoError(t, other.Update([]core.FeatureID{1, 2}, ValueFeatureCount, []float32{3, 3}, nil))
	assert.NotEqual(t, run(), append(append([]float32{}, other.Model().Lookup(1).Embedding()...),
		other.Model().Lookup(2).Embedding()...))
}

func TestGetUpdateEmbeddingRoundTrip(t *testing.T) {
	u := embeddingUpdater(t, 7)
	ids := []core.FeatureID{1, 2}

	// Only id 1 crosses the threshold, so payload lengths differ.
	require.NoError(t, u.Update(ids, ValueFeatureCount, []float32{5, 1}, nil))

	values, offsets, err := u.Get(ids, ValueWeight)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 5, 6}, offsets)
	assert.Len(t, values, 6)

	// Push gradients back through the mirrored layout.
	grads := []float32{1, 0.1, 0.1, 0.1, 0.1, 1}
	require.NoError(t, u.Update(ids, ValueWeight, grads, offsets))

	e := u.Model().Lookup(1)
	for j, a := range e.adagrad() {
		assert.InDelta(t, 0.01, a, 1e-6, "coordinate %d accumulator", j)
	}
}

func TestUpdateVAdagradStep(t *testing.T) {
	u := embeddingUpdater(t, 0)
	e := u.Model().Lookup(1)
	e.V = make([]float32, 8)
	e.V[0] = 0.5 // first coordinate non-zero to exercise the l2 term

	g := []float32{1, 0, 0, 0}
	u.updateV(g, e)

	cfg := u.cfg
	wantAcc := float32(1)
	eta := float64(cfg.VLr) / (math.Sqrt(1) + float64(cfg.VLrBeta))
	want := 0.5 - eta*(1+float64(cfg.VL2)*0.5)

	assert.Equal(t, wantAcc, e.adagrad()[0])
	assert.InDelta(t, want, e.Embedding()[0], 1e-7)
	assert.Zero(t, e.Embedding()[1], "zero gradient leaves the coordinate unchanged")
}

func TestUpdaterSaveLoadCarriesAuxFlag(t *testing.T) {
	u := embeddingUpdater(t, 0)
	require.NoError(t, u.Update([]core.FeatureID{1}, ValueFeatureCount, []float32{5}, nil))
	require.NoError(t, u.Update([]core.FeatureID{1}, ValueWeight,
		[]float32{3, 0, 0, 0, 0}, []int32{0, 5}))

	var buf bytes.Buffer
	require.NoError(t, u.Save(false, &buf))

	fresh := embeddingUpdater(t, 0)
	hasAux, err := fresh.Load(&buf)
	require.NoError(t, err)
	assert.False(t, hasAux)
	assert.False(t, fresh.HasAux())
	assert.Equal(t, u.Model().Lookup(1).Weight, fresh.Model().Lookup(1).Weight)
	assert.Equal(t, u.Model().Lookup(1).Embedding(), fresh.Model().Lookup(1).Embedding())
}
