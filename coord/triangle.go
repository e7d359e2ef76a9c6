package coord

import (
	"math"
)

const (
	// Epsilon is the max error when checking containment.
	Epsilon   = 0.001
	epsilonSq = Epsilon * Epsilon
)

// Triangle is one face of a probed height mesh.
type Triangle struct{ A, B, C Point }

func (t Triangle) edges() [3][2]Point {
	return [3][2]Point{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}}
}

// ContainsXY returns true if the 2D projection of the triangle
// has the point x,y. Points within Epsilon of an edge count as inside.
func (t Triangle) ContainsXY(x, y float64) bool {
	p := Point{X: x, Y: y}
	if !t.boundsContain(p) {
		return false
	}

	// either winding
	var pos, neg int
	for _, e := range t.edges() {
		if orient(e[0], e[1], p) >= 0 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 3 || neg == 3 {
		return true
	}

	for _, e := range t.edges() {
		if segmentDistSq(e[0], e[1], p) <= epsilonSq {
			return true
		}
	}
	return false
}

// DistanceSqXY is the squared 2D distance from x,y to the triangle;
// zero when the triangle contains the point.
func (t Triangle) DistanceSqXY(x, y float64) float64 {
	if t.ContainsXY(x, y) {
		return 0
	}
	p := Point{X: x, Y: y}
	best := math.Inf(1)
	for _, e := range t.edges() {
		best = math.Min(best, segmentDistSq(e[0], e[1], p))
	}
	return best
}

// Z will give the Z-coordinate on the plane defined by the triangle
// where it intersects x,y. Outside the triangle the plane is extended.
func (t Triangle) Z(x, y float64) float64 {
	n := t.C.Sub(t.A).Cross(t.B.Sub(t.A))
	d := n.Dot(t.C)

	return (d - n.X*x - n.Y*y) / n.Z
}

func (t Triangle) boundsContain(p Point) bool {
	minX := math.Min(t.A.X, math.Min(t.B.X, t.C.X)) - Epsilon
	maxX := math.Max(t.A.X, math.Max(t.B.X, t.C.X)) + Epsilon
	minY := math.Min(t.A.Y, math.Min(t.B.Y, t.C.Y)) - Epsilon
	maxY := math.Max(t.A.Y, math.Max(t.B.Y, t.C.Y)) + Epsilon

	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}

// orient is positive when p is left of a->b.
func orient(a, b, p Point) float64 {
	return (b.Y-a.Y)*(p.X-a.X) - (b.X-a.X)*(p.Y-a.Y)
}

// segmentDistSq is the squared XY distance from p to the segment a-b.
// adapted from https://totologic.blogspot.com/2014/01/accurate-point-in-triangle-test.html
func segmentDistSq(a, b, p Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return HypotSq(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	switch {
	case t < 0:
		return HypotSq(p.X-a.X, p.Y-a.Y)
	case t > 1:
		return HypotSq(p.X-b.X, p.Y-b.Y)
	}
	return HypotSq(p.X-a.X-t*dx, p.Y-a.Y-t*dy)
}
