package contracts

import (
	"maps"
	"slices"
)

// Partition maps segment indexes to the fields requested from them.
// Fields localized to the document start go to the first segment only,
// fields localized to the signature block go to the last one, and all
// other fields go to every segment. Segments without fields are absent.
func Partition(fs FieldSet, segs []Segment) map[int]FieldSet {
	out := make(map[int]FieldSet, len(segs))
	if len(segs) == 0 {
		return out
	}
	first, last := segs[0].Index, segs[len(segs)-1].Index
	for _, d := range fs {
		loc := d.Locality()
		for _, s := range segs {
			if assigned(loc, s.Index, first, last) {
				out[s.Index] = append(out[s.Index], d)
			}
		}
	}
	return out
}

func assigned(loc Locality, idx, first, last int) bool {
	if loc == 0 {
		return true
	}
	return (loc.Start() && idx == first) || (loc.End() && idx == last)
}

// sortedSegments returns the partition keys in ascending order.
func sortedSegments(p map[int]FieldSet) []int {
	return slices.Sorted(maps.Keys(p))
}
