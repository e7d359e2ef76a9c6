package kinematics

import (
	"math"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// SCARAParams describe a two link arm. Both arm angles are measured in
// degrees from the X axis; the second one is absolute, not relative to
// the first link.
type SCARAParams struct {
	L1             float64 `json:"l1"`
	L2             float64 `json:"l2"`
	OffsetX        float64 `json:"offset_x"`
	OffsetY        float64 `json:"offset_y"`
	DeadZoneRadius float64 `json:"dead_zone_radius"`
}

// SCARA implements a two link planar arm with a linear Z.
type SCARA struct {
	p        SCARAParams
	outer2   float64
	deadZone float64
}

// NewSCARA validates p.
func NewSCARA(p SCARAParams) (*SCARA, error) {
	if p.L1 <= 0 || p.L2 <= 0 {
		return nil, errors.New("scara: arm lengths must be positive")
	}
	if p.DeadZoneRadius < 0 || p.DeadZoneRadius >= p.L1+p.L2 {
		return nil, errors.Errorf("scara: dead zone radius %g out of range", p.DeadZoneRadius)
	}
	reach := p.L1 + p.L2
	return &SCARA{
		p:        p,
		outer2:   reach * reach,
		deadZone: p.DeadZoneRadius * p.DeadZoneRadius,
	}, nil
}

func (k *SCARA) Type() string { return TypeSCARA }

// Params returns the arm parameters.
func (k *SCARA) Params() SCARAParams { return k.p }

// Forward maps arm angles (degrees) and Z to a native position.
func (k *SCARA) Forward(a Actuators) (coord.Point, error) {
	t1, t2 := radians(a[0]), radians(a[1])
	return coord.Point{
		X: math.Cos(t1)*k.p.L1 + math.Cos(t2)*k.p.L2 + k.p.OffsetX,
		Y: math.Sin(t1)*k.p.L1 + math.Sin(t2)*k.p.L2 + k.p.OffsetY,
		Z: a[2],
	}, nil
}

// Inverse returns the shoulder angle, the absolute elbow angle and Z.
func (k *SCARA) Inverse(p coord.Point) (Actuators, error) {
	sx, sy := p.X-k.p.OffsetX, p.Y-k.p.OffsetY
	l1, l2 := k.p.L1, k.p.L2

	c2 := (coord.HypotSq(sx, sy) - l1*l1 - l2*l2) / (2 * l1 * l2)
	if !(c2 >= -1 && c2 <= 1) {
		return Actuators{}, ErrUnreachable
	}
	s2 := math.Sqrt(1 - c2*c2)

	theta := math.Atan2(sy, sx) - math.Atan2(l2*s2, l1+l2*c2)
	psi := math.Atan2(s2, c2)

	return Actuators{degrees(theta), degrees(theta + psi), p.Z}, nil
}

// Reachable is an annulus around the arm pivot.
func (k *SCARA) Reachable(x, y float64) bool {
	r2 := coord.HypotSq(x-k.p.OffsetX, y-k.p.OffsetY)
	return r2 >= k.deadZone && r2 <= k.outer2
}
