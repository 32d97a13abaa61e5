package core

// FeatureID is the 64-bit key identifying one model column.
// IDs order by feature group first, then by intra-group id: the top
// GroupBits(n) bits carry the group, the remaining low bits the
// intra-group id, so the natural integer order is already group-major.
type FeatureID uint64

// NumFeatureIDBits is the width of the feature-id key space.
const NumFeatureIDBits = 64

// MaxFeatureID is the largest representable feature id.
const MaxFeatureID = ^FeatureID(0)

// Group extracts the feature-group encoded in the top groupBits bits of id.
func (id FeatureID) Group(groupBits int) uint32 {
	if groupBits <= 0 {
		return 0
	}
	return uint32(id >> (NumFeatureIDBits - groupBits))
}

// GroupRange returns the half-open id range owned by a feature group.
// The end sits at the group's top key, so the single largest key of the
// group is excluded; partitioning re-attaches it via the adjacency fix.
func GroupRange(group int, groupBits int) Range {
	begin := FeatureID(group) << (NumFeatureIDBits - groupBits)
	return Range{
		Begin: begin,
		End:   begin | (MaxFeatureID >> groupBits),
	}
}
