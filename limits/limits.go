// Package limits checks that targets are physically reachable and keeps
// them inside the software travel limits.
package limits

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/pkg/errors"
)

// DualX describes a second X carriage parked at the max end.
type DualX struct {
	Enabled bool    `json:"enabled"`
	X2Min   float64 `json:"x2_min"`
	X2Max   float64 `json:"x2_max"`

	// T1Home is the X home position of the second carriage; it may be
	// beyond X2Max.
	T1Home float64 `json:"t1_home"`
}

// Config is the native travel of the linear axes.
type Config struct {
	Enabled bool                     `json:"enabled"`
	Min     [coord.NumLinear]float64 `json:"min"`
	Max     [coord.NumLinear]float64 `json:"max"`
	Probe   [2]float64               `json:"probe_offset"`
	DualX   DualX                    `json:"dual_x"`
}

// Limits are [min,max] per linear axis in native space.
type Limits [coord.NumLinear][2]float64

type bounds struct {
	native Limits
	offset [coord.NumLinear]float64
}

// Guard answers reachability questions and clamps targets into the
// soft endstops. Bounds are replaced by one pointer swap; Clamp and the
// Reachable checks never block.
type Guard struct {
	kin kinematics.Kinematics
	cfg Config

	mx          sync.Mutex
	carriage    int
	duplicating bool
	dupOffset   float64

	enabled atomic.Bool
	b       atomic.Pointer[bounds]
}

// New creates a guard for kin with all offsets zero.
func New(kin kinematics.Kinematics, cfg Config) (*Guard, error) {
	if kin == nil {
		return nil, errors.New("limits: kinematics required")
	}
	for _, a := range coord.LinearAxes {
		if cfg.Min[a] > cfg.Max[a] {
			return nil, errors.Errorf("limits: %s min %g is above max %g", a, cfg.Min[a], cfg.Max[a])
		}
	}
	if cfg.DualX.Enabled && cfg.DualX.X2Min > cfg.DualX.X2Max {
		return nil, errors.Errorf("limits: x2 min %g is above max %g", cfg.DualX.X2Min, cfg.DualX.X2Max)
	}

	g := &Guard{kin: kin, cfg: cfg}
	g.enabled.Store(cfg.Enabled)
	b := &bounds{}
	for _, a := range coord.LinearAxes {
		b.native[a] = g.axisRange(a)
	}
	g.b.Store(b)
	return g, nil
}

// Reachable reports whether the tool can reach native x,y.
func (g *Guard) Reachable(x, y float64) bool {
	return g.kin.Reachable(x, y)
}

// ReachableByProbe reports whether both the tool and the probe, which is
// mounted at the configured offset from it, can reach x,y.
func (g *Guard) ReachableByProbe(x, y float64) bool {
	return g.Reachable(x, y) && g.Reachable(x-g.cfg.Probe[0], y-g.cfg.Probe[1])
}

// ProbeOffset returns the probe XY offset from the tool.
func (g *Guard) ProbeOffset() (x, y float64) { return g.cfg.Probe[0], g.cfg.Probe[1] }

func (g *Guard) SetEnabled(v bool) { g.enabled.Store(v) }
func (g *Guard) Enabled() bool     { return g.enabled.Load() }

// Clamp moves each linear axis of a native position into its bounds.
// It does nothing while soft endstops are disabled.
func (g *Guard) Clamp(p *coord.Position) {
	if !g.enabled.Load() {
		return
	}
	b := g.b.Load()
	for _, a := range coord.LinearAxes {
		p[a] = math.Max(b.native[a][0], math.Min(b.native[a][1], p[a]))
	}
}

// Bounds returns the native limits of axis.
func (g *Guard) Bounds(axis coord.Axis) (lo, hi float64) {
	l := g.b.Load().native[axis]
	return l[0], l[1]
}

// LogicalBounds returns the limits of axis as seen with the current
// workspace offset applied.
func (g *Guard) LogicalBounds(axis coord.Axis) (lo, hi float64) {
	b := g.b.Load()
	return b.native[axis][0] + b.offset[axis], b.native[axis][1] + b.offset[axis]
}

// All returns the native limits of every linear axis.
func (g *Guard) All() Limits { return g.b.Load().native }

// Update recomputes the bounds of axis after its workspace offset
// changed. Its signature matches workspace.ChangeFunc.
func (g *Guard) Update(axis coord.Axis, offset float64) {
	if !axis.Linear() {
		return
	}
	g.mx.Lock()
	defer g.mx.Unlock()
	g.publish(axis, offset)
}

// UpdateAll recomputes every axis, e.g. after new geometry was applied.
func (g *Guard) UpdateAll(offsets [coord.NumLinear]float64) {
	g.mx.Lock()
	defer g.mx.Unlock()
	for _, a := range coord.LinearAxes {
		g.publish(a, offsets[a])
	}
}

func (g *Guard) publish(axis coord.Axis, offset float64) {
	next := *g.b.Load()
	next.native[axis] = g.axisRange(axis)
	next.offset[axis] = offset
	g.b.Store(&next)
}

// SetActiveCarriage selects which X carriage the X bounds describe.
func (g *Guard) SetActiveCarriage(n int) error {
	if n != 0 && (n != 1 || !g.cfg.DualX.Enabled) {
		return errors.Errorf("limits: no carriage %d", n)
	}
	g.mx.Lock()
	defer g.mx.Unlock()
	g.carriage = n
	g.publish(coord.X, g.b.Load().offset[coord.X])
	return nil
}

// SetDuplication turns on duplication mode, where the second carriage
// follows the first at offset.
func (g *Guard) SetDuplication(on bool, offset float64) error {
	if on && !g.cfg.DualX.Enabled {
		return errors.New("limits: duplication needs a second X carriage")
	}
	g.mx.Lock()
	defer g.mx.Unlock()
	g.duplicating, g.dupOffset = on, offset
	g.publish(coord.X, g.b.Load().offset[coord.X])
	return nil
}

// axisRange is the native range of axis for the current geometry and
// carriage mode. Callers hold mx.
func (g *Guard) axisRange(axis coord.Axis) [2]float64 {
	r := [2]float64{g.cfg.Min[axis], g.cfg.Max[axis]}

	switch {
	case axis == coord.Z:
		if d, ok := g.kin.(*kinematics.Delta); ok {
			r = [2]float64{0, d.Params().Height}
		}
	case axis == coord.X && g.cfg.DualX.Enabled:
		dualMax := math.Max(g.cfg.DualX.T1Home, g.cfg.DualX.X2Max)
		if g.carriage != 0 {
			r = [2]float64{g.cfg.DualX.X2Min, dualMax}
		} else if g.duplicating {
			r[1] = math.Min(r[1], dualMax-g.dupOffset)
		}
	}
	return r
}
