package coord

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerateFit is returned when a set of points does not define a plane,
// either because there are fewer than three or because they are collinear.
var ErrDegenerateFit = errors.New("coord: degenerate plane fit")

// degenerateRatio is the smallest accepted 1-r² between the x and y
// coordinates of the fitted points; below it the points are treated as collinear.
const degenerateRatio = 1e-9

// Plane is z = A*x + B*y + D.
type Plane struct{ A, B, D float64 }

// Z evaluates the plane at x,y.
func (p Plane) Z(x, y float64) float64 {
	return p.A*x + p.B*y + p.D
}

// PlaneThrough returns the plane through exactly three points.
func PlaneThrough(p0, p1, p2 Point) (Plane, error) {
	a := p0.Y*(p1.Z-p2.Z) + p1.Y*(p2.Z-p0.Z) + p2.Y*(p0.Z-p1.Z)
	b := p0.Z*(p1.X-p2.X) + p1.Z*(p2.X-p0.X) + p2.Z*(p0.X-p1.X)
	c := p0.X*(p1.Y-p2.Y) + p1.X*(p2.Y-p0.Y) + p2.X*(p0.Y-p1.Y)
	d := -p0.X*(p1.Y*p2.Z-p2.Y*p1.Z) - p1.X*(p2.Y*p0.Z-p0.Y*p2.Z) - p2.X*(p0.Y*p1.Z-p1.Y*p0.Z)

	if c == 0 {
		return Plane{}, ErrDegenerateFit
	}
	return Plane{A: -a / c, B: -b / c, D: -d / c}, nil
}

// PlaneFit accumulates points for a least-squares fit of z = Ax + By + D.
// The zero value is ready to use.
type PlaneFit struct {
	n             int
	sx, sy, sz    float64
	sxx, syy, sxy float64
	sxz, syz      float64
}

// Add includes one sample in the fit.
func (f *PlaneFit) Add(p Point) {
	f.n++
	f.sx += p.X
	f.sy += p.Y
	f.sz += p.Z
	f.sxx += p.X * p.X
	f.syy += p.Y * p.Y
	f.sxy += p.X * p.Y
	f.sxz += p.X * p.Z
	f.syz += p.Y * p.Z
}

// Len is the number of samples added so far.
func (f *PlaneFit) Len() int { return f.n }

// Reset clears all samples.
func (f *PlaneFit) Reset() { *f = PlaneFit{} }

// Solve solves the normal equations for the current samples.
func (f *PlaneFit) Solve() (Plane, error) {
	if f.n < 3 {
		return Plane{}, ErrDegenerateFit
	}
	n := float64(f.n)
	mx, my, mz := f.sx/n, f.sy/n, f.sz/n

	// centered second moments
	cxx := f.sxx - n*mx*mx
	cyy := f.syy - n*my*my
	cxy := f.sxy - n*mx*my
	cxz := f.sxz - n*mx*mz
	cyz := f.syz - n*my*mz

	det := cxx*cyy - cxy*cxy
	if cxx <= 0 || cyy <= 0 || det <= degenerateRatio*cxx*cyy || math.IsNaN(det) {
		return Plane{}, ErrDegenerateFit
	}

	a := (cxz*cyy - cyz*cxy) / det
	b := (cyz*cxx - cxz*cxy) / det
	return Plane{A: a, B: b, D: mz - a*mx - b*my}, nil
}

// FitPlane is a least-squares fit over points.
func FitPlane(points []Point) (Plane, error) {
	var f PlaneFit
	for _, p := range points {
		f.Add(p)
	}
	return f.Solve()
}
