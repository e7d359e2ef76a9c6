package kinematics

import (
	"log"
	"math"
	"sync/atomic"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// Nominal tower angles in degrees, before trim.
var towerAngles = [3]float64{210, 330, 90}

// DeltaParams are the calibration values of a linear delta machine.
type DeltaParams struct {
	Height            float64    `json:"height"`
	EndstopAdj        [3]float64 `json:"endstop_adj"`
	Radius            float64    `json:"radius"`
	DiagonalRod       float64    `json:"diagonal_rod"`
	TowerAngleTrim    [3]float64 `json:"tower_angle_trim"`
	RadiusTrim        [3]float64 `json:"radius_trim"`
	DiagonalRodTrim   [3]float64 `json:"diagonal_rod_trim"`
	PrintableRadius   float64    `json:"printable_radius"`
	CalibrationRadius float64    `json:"calibration_radius"`
	SegmentsPerSecond float64    `json:"segments_per_second"`
}

// deltaGeometry is immutable once published.
type deltaGeometry struct {
	params DeltaParams

	towers [3][2]float64
	rod2   [3]float64

	printableRadius2 float64
	safeFromTop      float64
	clipStartHeight  float64
}

func (g *deltaGeometry) radicand(t int, x, y float64) float64 {
	dx := g.towers[t][0] - x
	dy := g.towers[t][1] - y
	return g.rod2[t] - (dx*dx + dy*dy)
}

func (g *deltaGeometry) inverse(p coord.Point) (Actuators, error) {
	var a Actuators
	for t := range a {
		r := g.radicand(t, p.X, p.Y)
		if !(r >= 0) {
			return Actuators{}, ErrUnreachable
		}
		a[t] = p.Z + math.Sqrt(r)
	}
	return a, nil
}

func (g *deltaGeometry) inverseFast(p coord.Point) (Actuators, error) {
	var a Actuators
	for t := range a {
		r := g.radicand(t, p.X, p.Y)
		if !(r >= 0) {
			return Actuators{}, ErrUnreachable
		}
		a[t] = p.Z + fastSqrt(r)
	}
	return a, nil
}

// forward trilaterates the effector from the three carriage heights.
func (g *deltaGeometry) forward(a Actuators) (coord.Point, error) {
	p1 := coord.Point{X: g.towers[0][0], Y: g.towers[0][1], Z: a[0]}
	p2 := coord.Point{X: g.towers[1][0], Y: g.towers[1][1], Z: a[1]}
	p3 := coord.Point{X: g.towers[2][0], Y: g.towers[2][1], Z: a[2]}

	s21 := p2.Sub(p1)
	s31 := p3.Sub(p1)

	d := s21.Len()
	ex := s21.Div(d)
	i := ex.Dot(s31)
	ey := s31.Sub(ex.Mul(i))
	ey = ey.Div(ey.Len())
	ez := ex.Cross(ey)
	j := ey.Dot(s31)

	x := (g.rod2[0] - g.rod2[1] + d*d) / (2 * d)
	y := (g.rod2[0] - g.rod2[2] - x*x + (x-i)*(x-i) + j*j) / (2 * j)
	r := g.rod2[0] - x*x - y*y
	if !(r >= 0) {
		return coord.Point{}, ErrUnreachable
	}
	z := -math.Sqrt(r)

	return p1.Add(ex.Mul(x)).Add(ey.Mul(y)).Add(ez.Mul(z)), nil
}

// Delta implements linear delta kinematics with three towers at
// 120 degree intervals. The derived geometry is swapped atomically by
// Recalc, so Inverse may run concurrently with recalibration.
type Delta struct {
	geom atomic.Pointer[deltaGeometry]
}

// NewDelta validates p and computes the initial geometry.
func NewDelta(p DeltaParams) (*Delta, error) {
	d := &Delta{}
	if err := d.Recalc(p); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that every tower can reach the whole printable area.
func (p DeltaParams) Validate() error {
	if p.Radius <= 0 {
		return errors.New("delta: radius must be positive")
	}
	if p.Height <= 0 {
		return errors.New("delta: height must be positive")
	}
	if p.PrintableRadius < 0 {
		return errors.New("delta: printable radius must not be negative")
	}
	pr := p.PrintableRadius
	if pr == 0 {
		pr = p.Radius
	}
	for t := range towerAngles {
		rod := p.DiagonalRod + p.DiagonalRodTrim[t]
		if rod <= p.Radius+p.RadiusTrim[t]+pr {
			return errors.Errorf("delta: diagonal rod %d (%g) cannot cover the printable radius", t, rod)
		}
	}
	return nil
}

// Recalc derives tower positions, squared rod lengths and the clip start
// height from p and publishes them in one step. Invalid parameters are
// rejected and the previous geometry stays in place.
func (d *Delta) Recalc(p DeltaParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.PrintableRadius == 0 {
		p.PrintableRadius = p.Radius
	}

	g := &deltaGeometry{params: p}
	for t, angle := range towerAngles {
		rad := radians(angle + p.TowerAngleTrim[t])
		r := p.Radius + p.RadiusTrim[t]
		g.towers[t] = [2]float64{math.Cos(rad) * r, math.Sin(rad) * r}
		rod := p.DiagonalRod + p.DiagonalRodTrim[t]
		g.rod2[t] = rod * rod
	}
	g.printableRadius2 = p.PrintableRadius * p.PrintableRadius

	center, err := g.inverse(coord.Point{})
	if err != nil {
		return errors.Wrap(err, "delta: center")
	}
	edge, err := g.inverse(coord.Point{Y: p.PrintableRadius})
	if err != nil {
		return errors.Wrap(err, "delta: printable edge")
	}
	g.safeFromTop = math.Abs(center[coord.A] - edge[coord.A])
	g.clipStartHeight = p.Height - g.safeFromTop

	d.geom.Store(g)
	log.Printf("delta: printable radius %.2fmm, clip start height %.2fmm", p.PrintableRadius, g.clipStartHeight)
	return nil
}

func (d *Delta) Type() string { return TypeDelta }

// Params returns the parameters of the published geometry.
func (d *Delta) Params() DeltaParams { return d.geom.Load().params }

// Inverse returns the three carriage heights for p:
//
//	z + sqrt(rod² - ((towerX-x)² + (towerY-y)²))
//
// It does not allocate.
func (d *Delta) Inverse(p coord.Point) (Actuators, error) {
	return d.geom.Load().inverse(p)
}

// InverseFast is Inverse using the reciprocal square root approximation,
// accurate to FastSqrtMaxError.
func (d *Delta) InverseFast(p coord.Point) (Actuators, error) {
	return d.geom.Load().inverseFast(p)
}

// Forward returns the effector position for three carriage heights.
func (d *Delta) Forward(a Actuators) (coord.Point, error) {
	return d.geom.Load().forward(a)
}

// Reachable is x²+y² within the printable radius.
func (d *Delta) Reachable(x, y float64) bool {
	return coord.HypotSq(x, y) <= d.geom.Load().printableRadius2
}

// Tower returns the XY position of tower t (coord.A, coord.B or coord.C).
func (d *Delta) Tower(t coord.Axis) (x, y float64) {
	tw := d.geom.Load().towers[t]
	return tw[0], tw[1]
}

// SafeDistanceFromTop is how far below the top the effector must be
// before it can travel to the edge of the printable radius.
func (d *Delta) SafeDistanceFromTop() float64 { return d.geom.Load().safeFromTop }

// ClipStartHeight is the highest Z from which every reachable XY can be
// traveled to without clipping.
func (d *Delta) ClipStartHeight() float64 { return d.geom.Load().clipStartHeight }
