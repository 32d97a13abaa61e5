package bcd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/llebel/difacto/core"
)

var (
	// ErrBadGroupBits is returned when the group-bit width is not hex-digit aligned.
	ErrBadGroupBits = errors.New("group bits must be a multiple of 4")
	// ErrGroupOutOfRange is returned when a group id does not fit in the group bits.
	ErrGroupOutOfRange = errors.New("group id out of range")
	// ErrBlocksUnsorted is returned when blocks are not sorted and pairwise disjoint.
	ErrBlocksUnsorted = errors.New("blocks must be sorted and non-overlapping")
	// ErrInvalidBlock is returned when a block range is not well formed.
	ErrInvalidBlock = errors.New("invalid block range")
)

// GroupPartition names a feature group and the number of contiguous blocks
// its id sub-range is split into.
type GroupPartition struct {
	Group int
	Parts int
}

// Partition splits the feature-id space into sorted, contiguous,
// non-overlapping blocks. groupBits must be a multiple of 4 and every group
// id must fit in groupBits. Each group's sub-range is cut into Parts nearly
// equal segments; after sorting all segments, any one-id gap left at a
// group's excluded top key is closed by extending the earlier block, so
// consecutive groups come out exactly adjacent.
func Partition(groupBits int, groups []GroupPartition) ([]core.Range, error) {
	if groupBits%4 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadGroupBits, groupBits)
	}
	blocks := make([]core.Range, 0, len(groups))
	for _, g := range groups {
		if groupBits >= 64 || g.Group >= 1<<groupBits || g.Group < 0 {
			return nil, fmt.Errorf("%w: group %d does not fit in %d bits", ErrGroupOutOfRange, g.Group, groupBits)
		}
		gr := core.GroupRange(g.Group, groupBits)
		for i := 0; i < g.Parts; i++ {
			seg := gr.Segment(i, g.Parts)
			if !seg.Valid() {
				return nil, fmt.Errorf("%w: %s", ErrInvalidBlock, seg)
			}
			blocks = append(blocks, seg)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Begin < blocks[j].Begin })
	for i := 1; i < len(blocks); i++ {
		if blocks[i-1].End < blocks[i].Begin {
			blocks[i-1].End++
		}
		if blocks[i-1].End > blocks[i].Begin {
			return nil, fmt.Errorf("%w: %s overlaps %s", ErrBlocksUnsorted, blocks[i-1], blocks[i])
		}
	}
	return blocks, nil
}

// FindPosition locates each block inside a sorted feature-id list, returning
// one index range per block. Blocks must be valid, sorted, and pairwise
// disjoint (blocks[i-1].End <= blocks[i].Begin) — verified up front. The
// search cursor only moves forward, so the whole lookup is O(n + k·log n)
// and the returned index ranges are contiguous, non-decreasing, and in
// block order.
func FindPosition(featureIDs []core.FeatureID, blocks []core.Range) ([]core.Range, error) {
	for i, b := range blocks {
		if !b.Valid() {
			return nil, fmt.Errorf("%w: block %d %s", ErrInvalidBlock, i, b)
		}
		if i > 0 && blocks[i-1].End > b.Begin {
			return nil, fmt.Errorf("%w: block %d %s overlaps %s", ErrBlocksUnsorted, i, blocks[i-1], b)
		}
	}

	positions := make([]core.Range, len(blocks))
	cur := 0
	for i, b := range blocks {
		lb := cur + sort.Search(len(featureIDs)-cur, func(j int) bool {
			return featureIDs[cur+j] >= b.Begin
		})
		ub := lb + sort.Search(len(featureIDs)-lb, func(j int) bool {
			return featureIDs[lb+j] >= b.End
		})
		cur = ub
		positions[i] = core.Range{Begin: core.FeatureID(lb), End: core.FeatureID(ub)}
	}
	return positions, nil
}
