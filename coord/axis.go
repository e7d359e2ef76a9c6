package coord

import "strings"

// Axis indexes every per-axis array in the module. The order is fixed.
type Axis int

const (
	X Axis = iota
	Y
	Z
	E

	// NumAxis is the number of entries in a Position.
	NumAxis = 4
	// NumLinear is the number of linear (XYZ) axes.
	NumLinear = 3
)

// Tower indices for delta machines share the XYZ slots.
const (
	A = X
	B = Y
	C = Z
)

// LinearAxes lists X, Y and Z in index order.
var LinearAxes = [NumLinear]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	case E:
		return "E"
	}
	return "?"
}

// Linear reports whether a is one of X, Y or Z.
func (a Axis) Linear() bool { return a >= X && a <= Z }

// ParseAxes converts a string like "xz" into axes, ignoring unknown letters.
func ParseAxes(s string) []Axis {
	var axes []Axis
	for _, r := range strings.ToUpper(s) {
		switch r {
		case 'X':
			axes = append(axes, X)
		case 'Y':
			axes = append(axes, Y)
		case 'Z':
			axes = append(axes, Z)
		case 'E':
			axes = append(axes, E)
		}
	}
	return axes
}

// Position holds one coordinate per axis. Whether it is logical or native
// is decided by the function that produced it.
type Position [NumAxis]float64

// Pos is a shorthand constructor.
func Pos(x, y, z, e float64) Position { return Position{x, y, z, e} }

// Point returns the XYZ part of p.
func (p Position) Point() Point { return Point{X: p[X], Y: p[Y], Z: p[Z]} }

// WithPoint replaces the XYZ part of p, keeping E.
func (p Position) WithPoint(pt Point) Position {
	p[X], p[Y], p[Z] = pt.X, pt.Y, pt.Z
	return p
}
