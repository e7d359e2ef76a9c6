package kinematics

import (
	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// reachMargin absorbs float imprecision at the edge of travel.
const reachMargin = 0.001

// Cartesian maps each motor directly to one axis.
type Cartesian struct {
	min, max [coord.NumLinear]float64
}

// NewCartesian creates cartesian kinematics with the given travel range.
func NewCartesian(lo, hi [coord.NumLinear]float64) (*Cartesian, error) {
	for _, a := range coord.LinearAxes {
		if lo[a] > hi[a] {
			return nil, errors.Errorf("cartesian: %s min %g is above max %g", a, lo[a], hi[a])
		}
	}
	return &Cartesian{min: lo, max: hi}, nil
}

func (k *Cartesian) Type() string { return TypeCartesian }

func (k *Cartesian) Inverse(p coord.Point) (Actuators, error) {
	return Actuators{p.X, p.Y, p.Z}, nil
}

func (k *Cartesian) Forward(a Actuators) (coord.Point, error) {
	return coord.Point{X: a[0], Y: a[1], Z: a[2]}, nil
}

// Reachable is an axis-aligned box test on X and Y.
func (k *Cartesian) Reachable(x, y float64) bool {
	return within(x, k.min[coord.X]-reachMargin, k.max[coord.X]+reachMargin) &&
		within(y, k.min[coord.Y]-reachMargin, k.max[coord.Y]+reachMargin)
}

// Range returns the configured travel of axis.
func (k *Cartesian) Range(axis coord.Axis) (lo, hi float64) {
	return k.min[axis], k.max[axis]
}

func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
