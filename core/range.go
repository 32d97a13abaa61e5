package core

import "fmt"

// Range is a half-open interval [Begin, End) over the feature-id space or
// an index space. The zero Range is valid and empty.
type Range struct {
	Begin FeatureID
	End   FeatureID
}

// Valid reports whether the range is well formed (Begin <= End).
// Callers must check validity before segmentation or lookup.
func (r Range) Valid() bool {
	return r.Begin <= r.End
}

// Empty reports whether the range contains no ids.
func (r Range) Empty() bool {
	return r.Begin >= r.End
}

// Size returns the number of ids covered by the range.
func (r Range) Size() uint64 {
	if !r.Valid() {
		return 0
	}
	return uint64(r.End - r.Begin)
}

// Contains reports whether id falls inside [Begin, End).
func (r Range) Contains(id FeatureID) bool {
	return id >= r.Begin && id < r.End
}

// Segment splits the range into n nearly equal contiguous parts and returns
// part i. Parts have equal width except the last, which absorbs the
// remainder so that Segment(n-1, n).End == End.
func (r Range) Segment(i, n int) Range {
	if i < 0 || n <= 0 || i >= n {
		panic(fmt.Sprintf("core: segment %d of %d out of bounds", i, n))
	}
	width := r.Size() / uint64(n)
	seg := Range{Begin: r.Begin + FeatureID(width)*FeatureID(i)}
	if i == n-1 {
		seg.End = r.End
	} else {
		seg.End = seg.Begin + FeatureID(width)
	}
	return seg
}

// String formats the range for logs and test failures.
func (r Range) String() string {
	return fmt.Sprintf("[%#x, %#x)", uint64(r.Begin), uint64(r.End))
}
