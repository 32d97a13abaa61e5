package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeValid(t *testing.T) {
	assert.True(t, Range{}.Valid())
	assert.True(t, Range{Begin: 1, End: 1}.Valid())
	assert.True(t, Range{Begin: 1, End: 9}.Valid())
	assert.False(t, Range{Begin: 9, End: 1}.Valid())
}

func TestRangeSize(t *testing.T) {
	assert.Equal(t, uint64(0), Range{}.Size())
	assert.Equal(t, uint64(8), Range{Begin: 1, End: 9}.Size())
	assert.Equal(t, uint64(0), Range{Begin: 9, End: 1}.Size())
}

func TestRangeContains(t *testing.T) {
	r := Range{Begin: 10, End: 20}
	assert.False(t, r.Contains(9))
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(19))
	assert.False(t, r.Contains(20))
}

func TestRangeSegment(t *testing.T) {
	r := Range{Begin: 0, End: 10}

	// Equal split.
	assert.Equal(t, Range{Begin: 0, End: 5}, r.Segment(0, 2))
	assert.Equal(t, Range{Begin: 5, End: 10}, r.Segment(1, 2))

	// Remainder goes to the last segment.
	assert.Equal(t, Range{Begin: 0, End: 3}, r.Segment(0, 3))
	assert.Equal(t, Range{Begin: 3, End: 6}, r.Segment(1, 3))
	assert.Equal(t, Range{Begin: 6, End: 10}, r.Segment(2, 3))

	// Segments tile the range exactly.
	for n := 1; n <= 7; n++ {
		prev := r.Begin
		for i := 0; i < n; i++ {
			seg := r.Segment(i, n)
			require.True(t, seg.Valid())
			assert.Equal(t, prev, seg.Begin, "segment %d/%d", i, n)
			prev = seg.End
		}
		assert.Equal(t, r.End, prev)
	}
}

func TestRangeSegmentPanicsOutOfBounds(t *testing.T) {
	r := Range{Begin: 0, End: 10}
	assert.Panics(t, func() { r.Segment(2, 2) })
	assert.Panics(t, func() { r.Segment(-1, 2) })
	assert.Panics(t, func() { r.Segment(0, 0) })
}

func TestGroupRange(t *testing.T) {
	g0 := GroupRange(0, 4)
	g1 := GroupRange(1, 4)

	assert.Equal(t, FeatureID(0), g0.Begin)
	assert.Equal(t, FeatureID(0x0fffffffffffffff), g0.End)
	assert.Equal(t, FeatureID(0x1000000000000000), g1.Begin)
	assert.Equal(t, FeatureID(0x1fffffffffffffff), g1.End)

	// The group's excluded top key bridges to the next group's begin.
	assert.Equal(t, g1.Begin, g0.End+1)
}

func TestFeatureIDGroup(t *testing.T) {
	assert.Equal(t, uint32(0), FeatureID(0x0123).Group(4))
	assert.Equal(t, uint32(1), FeatureID(0x1000000000000000).Group(4))
	assert.Equal(t, uint32(0xf), MaxFeatureID.Group(4))
	assert.Equal(t, uint32(0xab), FeatureID(0xab00000000000000).Group(8))
	assert.Equal(t, uint32(0), FeatureID(0xab00000000000000).Group(0))
}

func TestRowBatchValidate(t *testing.T) {
	b := RowBatch{
		Offsets: []int{0, 2, 2, 5},
		Index:   []FeatureID{3, 7, 1, 4, 9},
		Values:  []float32{1, 1, 1, 1, 1},
		Labels:  []float32{1, 0, 1},
	}
	require.NoError(t, b.Validate())
	assert.Equal(t, 3, b.NumRows())
	assert.Equal(t, []FeatureID{3, 7}, b.Row(0))
	assert.Empty(t, b.Row(1))
	assert.Equal(t, []FeatureID{1, 4, 9}, b.Row(2))
}

func TestRowBatchValidateRejectsBrokenLayouts(t *testing.T) {
	assert.NoError(t, RowBatch{}.Validate())
	assert.ErrorIs(t, RowBatch{Index: []FeatureID{1}}.Validate(), ErrMalformedBatch)
	assert.ErrorIs(t, RowBatch{Offsets: []int{1, 2}, Index: []FeatureID{1, 2}}.Validate(), ErrMalformedBatch)
	assert.ErrorIs(t, RowBatch{Offsets: []int{0, 2, 1}, Index: []FeatureID{1, 2}}.Validate(), ErrMalformedBatch)
	assert.ErrorIs(t, RowBatch{Offsets: []int{0, 1}, Index: []FeatureID{1, 2}}.Validate(), ErrMalformedBatch)
	assert.ErrorIs(t, RowBatch{Offsets: []int{0, 1}, Index: []FeatureID{1}, Values: []float32{1, 2}}.Validate(), ErrMalformedBatch)
	assert.ErrorIs(t, RowBatch{Offsets: []int{0, 1}, Index: []FeatureID{1}, Labels: []float32{1, 0}}.Validate(), ErrMalformedBatch)
}
