package coord

import (
	"math"
)

// Point is a cartesian XYZ vector in millimeters.
type Point struct{ X, Y, Z float64 }

func (p Point) Equal(b Point) bool {
	return p.X == b.X && p.Y == b.Y && p.Z == b.Z
}

// Near reports whether every component of p is within tol of b.
func (p Point) Near(b Point, tol float64) bool {
	return math.Abs(p.X-b.X) <= tol && math.Abs(p.Y-b.Y) <= tol && math.Abs(p.Z-b.Z) <= tol
}

func (p Point) Cross(op Point) Point {
	return Point{
		p.Y*op.Z - p.Z*op.Y,
		p.Z*op.X - p.X*op.Z,
		p.X*op.Y - p.Y*op.X,
	}
}
func (p Point) Dot(op Point) float64 {
	return p.X*op.X + p.Y*op.Y + p.Z*op.Z
}

// Len is the euclidean length of p.
func (p Point) Len() float64 {
	return math.Sqrt(p.Dot(p))
}

func (p Point) Mul(val float64) Point {
	p.X *= val
	p.Y *= val
	p.Z *= val
	return p
}

func (p Point) Div(val float64) Point {
	p.X /= val
	p.Y /= val
	p.Z /= val
	return p
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	p.Z -= target.Z
	return p
}

// Split will return n evenly spaced points from p to the target,
// ending exactly on target.
func (p Point) Split(target Point, n int) []Point {
	if n < 1 {
		n = 1
	}
	step := target.Sub(p).Div(float64(n))

	res := make([]Point, n)
	for i := range res {
		res[i] = p.Add(step.Mul(float64(i + 1)))
	}
	res[n-1] = target

	return res
}

// DistanceXY will return the 2D distance to p from (x,y).
func (p Point) DistanceXY(x, y float64) float64 {
	return math.Sqrt(HypotSq(x-p.X, y-p.Y))
}

// HypotSq is x²+y².
func HypotSq(x, y float64) float64 {
	return x*x + y*y
}
