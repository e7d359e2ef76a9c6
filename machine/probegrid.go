package machine

import (
	"math"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// ProbeGridOptions configure a grid of probe points in logical space.
type ProbeGridOptions struct {
	Origin               coord.Point
	DistanceX, DistanceY float64

	// Granularity is the largest distance between neighbouring points.
	Granularity float64
}

// ProbeGrid returns the probe positions of a grid scan, ordered so
// consecutive points are neighbours. Points the probe cannot reach are
// left out.
func (m *Machine) ProbeGrid(opt ProbeGridOptions) ([]coord.Point, error) {
	if opt.Granularity <= 0 || opt.DistanceX < 0 || opt.DistanceY < 0 {
		return nil, errors.New("probe grid needs a positive granularity and size")
	}
	xyDist := math.Sqrt(opt.Granularity * opt.Granularity / 2)

	xCount := int(math.Max(1, math.Ceil(opt.DistanceX/xyDist)))
	yCount := int(math.Max(1, math.Ceil(opt.DistanceY/xyDist)))

	var pts []coord.Point
	for y := 0; y <= yCount; y++ {
		for x := 0; x <= xCount; x++ {
			xVal := opt.DistanceX / float64(xCount) * float64(x)
			if y%2 != 0 {
				xVal = opt.DistanceX - xVal
			}
			pts = m.appendProbe(pts, opt.Origin.X+xVal, opt.Origin.Y+opt.DistanceY/float64(yCount)*float64(y), opt.Origin.Z)
		}
	}
	if len(pts) == 0 {
		return nil, errors.New("no reachable probe points")
	}
	return pts, nil
}

// TiltPoints returns the quick scan pattern used to tilt a mesh: the
// corners and the center of the area.
func (m *Machine) TiltPoints(opt ProbeGridOptions) ([]coord.Point, error) {
	o := opt.Origin
	var pts []coord.Point
	pts = m.appendProbe(pts, o.X, o.Y, o.Z)
	pts = m.appendProbe(pts, o.X, o.Y+opt.DistanceY, o.Z)
	pts = m.appendProbe(pts, o.X+opt.DistanceX/2, o.Y+opt.DistanceY/2, o.Z)
	pts = m.appendProbe(pts, o.X+opt.DistanceX, o.Y, o.Z)
	pts = m.appendProbe(pts, o.X+opt.DistanceX, o.Y+opt.DistanceY, o.Z)
	if len(pts) < 3 {
		return nil, errors.Errorf("only %d reachable tilt points", len(pts))
	}
	return pts, nil
}

func (m *Machine) appendProbe(pts []coord.Point, x, y, z float64) []coord.Point {
	if !m.ReachableByProbe(x, y) {
		return pts
	}
	return append(pts, coord.Point{X: x, Y: y, Z: z})
}
