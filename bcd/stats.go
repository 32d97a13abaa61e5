package bcd

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/llebel/difacto/core"
)

// DefaultStatsSkip samples every 10th row, i.e. roughly 10% of the data.
const DefaultStatsSkip = 10

// maxStatsGroupBits bounds the histogram to 2^16 + 2 buckets.
const maxStatsGroupBits = 16

// GroupStats accumulates a sampled per-group feature-frequency histogram
// used to size partition counts. The histogram has 2^groupBits + 2 buckets:
// one per group, then the sampled-row count, then the total-row count.
// Values are raw and unnormalized; load balancing is the caller's business.
//
// Not safe for concurrent use.
type GroupStats struct {
	groupBits int
	skip      int
	values    []float64
	seen      *roaring64.Bitmap
}

// GroupStatsOption configures a GroupStats.
type GroupStatsOption func(*GroupStats)

// WithStatsSkip overrides the sampling stride. Every skip-th row is counted.
func WithStatsSkip(skip int) GroupStatsOption {
	return func(s *GroupStats) {
		if skip > 0 {
			s.skip = skip
		}
	}
}

// NewGroupStats creates group statistics for a groupBits-wide group space.
// groupBits must be a multiple of 4 and at most 16.
func NewGroupStats(groupBits int, optFns ...GroupStatsOption) (*GroupStats, error) {
	if groupBits%4 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadGroupBits, groupBits)
	}
	if groupBits > maxStatsGroupBits {
		return nil, fmt.Errorf("%w: group bits %d exceeds %d", ErrGroupOutOfRange, groupBits, maxStatsGroupBits)
	}
	s := &GroupStats{
		groupBits: groupBits,
		skip:      DefaultStatsSkip,
		values:    make([]float64, (1<<groupBits)+2),
		seen:      roaring64.New(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s, nil
}

// Add folds one row batch into the histogram, sampling every skip-th row.
func (s *GroupStats) Add(batch core.RowBatch) {
	var sampled float64
	n := batch.NumRows()
	for i := 0; i < n; i += s.skip {
		for _, id := range batch.Row(i) {
			s.values[id.Group(s.groupBits)]++
			s.seen.Add(uint64(id))
		}
		sampled++
	}
	s.values[1<<s.groupBits] += sampled
	s.values[(1<<s.groupBits)+1] += float64(n)
}

// Get returns a copy of the raw histogram: 2^groupBits group buckets,
// the sampled-row count, and the total-row count, in that order.
func (s *GroupStats) Get() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// DistinctFeatures returns the number of distinct feature ids seen across
// sampled rows. Useful for choosing dense versus sparse model storage.
func (s *GroupStats) DistinctFeatures() uint64 {
	return s.seen.GetCardinality()
}

// DistinctFeaturesInGroup returns the distinct sampled feature ids whose
// group matches.
func (s *GroupStats) DistinctFeaturesInGroup(group int) uint64 {
	if s.groupBits == 0 {
		if group != 0 {
			return 0
		}
		return s.seen.GetCardinality()
	}
	gr := core.GroupRange(group, s.groupBits)
	// Rank counts values <= x; the group owns [Begin, End] including its
	// top key.
	top := s.seen.Rank(uint64(gr.End))
	if gr.Begin == 0 {
		return top
	}
	return top - s.seen.Rank(uint64(gr.Begin)-1)
}
