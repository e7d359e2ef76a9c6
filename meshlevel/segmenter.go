package meshlevel

import (
	"math"

	"github.com/mastercactapus/motioncore/coord"
)

// Segmenter splits straight native moves so that each piece follows the
// bed height map.
type Segmenter struct {
	leveling    *Leveling
	granularity float64
}

// NewSegmenter splits moves into XY pieces no longer than granularity.
// A granularity of zero or less never splits.
func NewSegmenter(l *Leveling, granularity float64) *Segmenter {
	return &Segmenter{leveling: l, granularity: granularity}
}

// Segments returns the number of pieces a move of XY length dist needs.
func (s *Segmenter) Segments(dist float64) int {
	if s.granularity <= 0 || dist <= s.granularity {
		return 1
	}
	return int(math.Ceil(dist / s.granularity))
}

// Append appends the leveled end point of every piece of the move from
// start to end to dst. start itself is not included.
func (s *Segmenter) Append(dst []coord.Point, start, end coord.Point) []coord.Point {
	n := 1
	if !start.Equal(end) {
		n = s.Segments(start.DistanceXY(end.X, end.Y))
	}
	for _, p := range start.Split(end, n) {
		p.Z = s.leveling.Apply(p.X, p.Y, p.Z)
		dst = append(dst, p)
	}
	return dst
}

// Segment is Append into a new slice.
func (s *Segmenter) Segment(start, end coord.Point) []coord.Point {
	return s.Append(nil, start, end)
}
