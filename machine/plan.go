package machine

import (
	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/mastercactapus/motioncore/meshlevel"
	"github.com/pkg/errors"
)

// Plan is one checked move end point.
type Plan struct {
	// Logical is the requested target after clamping.
	Logical coord.Position `json:"logical"`

	// Native is the clamped target before leveling.
	Native coord.Position `json:"native"`

	// LeveledZ is the native Z with bed compensation applied.
	LeveledZ float64 `json:"leveled_z"`

	Actuators kinematics.Actuators `json:"actuators"`
	Clamped   bool                 `json:"clamped"`
}

// moving reports which linear axes a logical target changes.
func (m *Machine) moving(target coord.Position) (x, y, z bool) {
	cur := m.ws.PositionToLogical(m.current)
	return target[coord.X] != cur[coord.X], target[coord.Y] != cur[coord.Y], target[coord.Z] != cur[coord.Z]
}

// prepare runs the checks shared by Plan and PlanLine and returns the
// clamped native target. Callers hold mx.
func (m *Machine) prepare(target coord.Position) (coord.Position, bool, error) {
	if err := m.homing.AxisUnhomedError(m.moving(target)); err != nil {
		return coord.Position{}, false, err
	}

	native := m.ws.PositionToNative(target)
	requested := native
	m.guard.Clamp(&native)

	if !m.guard.Reachable(native[coord.X], native[coord.Y]) {
		return coord.Position{}, false, errors.Wrapf(kinematics.ErrUnreachable, "X%.3f Y%.3f", target[coord.X], target[coord.Y])
	}
	return native, native != requested, nil
}

// solve levels a native point and runs inverse kinematics on it.
func (m *Machine) solve(native coord.Position) (Plan, error) {
	return m.solveLeveled(native, m.level.Apply(native[coord.X], native[coord.Y], native[coord.Z]))
}

func (m *Machine) solveLeveled(native coord.Position, z float64) (Plan, error) {
	pt := native.Point()
	pt.Z = z

	a, err := m.kin.Inverse(pt)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "X%.3f Y%.3f Z%.3f", pt.X, pt.Y, pt.Z)
	}
	return Plan{
		Logical:   m.ws.PositionToLogical(native),
		Native:    native,
		LeveledZ:  z,
		Actuators: a,
	}, nil
}

// Plan converts a logical target into actuator coordinates. The target
// is checked against homing, clamped into the soft endstops, checked for
// reachability, leveled and solved in that order. The current position
// only changes when every step succeeds.
func (m *Machine) Plan(target coord.Position) (Plan, error) {
	m.mx.Lock()
	defer m.mx.Unlock()

	native, clamped, err := m.prepare(target)
	if err != nil {
		return Plan{}, err
	}
	p, err := m.solve(native)
	if err != nil {
		return Plan{}, err
	}
	p.Clamped = clamped

	m.current = native
	m.publish()
	return p, nil
}

// PlanLine is Plan for a straight line from the current position,
// split so no piece is longer than granularity in XY. A granularity of
// zero uses the configured segment length.
func (m *Machine) PlanLine(target coord.Position, granularity float64) ([]Plan, error) {
	if granularity == 0 {
		granularity = m.cfg.Leveling.SegmentLength
	}

	m.mx.Lock()
	defer m.mx.Unlock()

	end, clamped, err := m.prepare(target)
	if err != nil {
		return nil, err
	}
	start := m.current

	pieces := meshlevel.NewSegmenter(m.level, granularity).Segment(start.Point(), end.Point())
	n := len(pieces)

	plans := make([]Plan, 0, n)
	for i, pt := range pieces {
		leveled := pt.Z
		native := end
		if i < n-1 {
			pt.Z = m.level.Unapply(pt.X, pt.Y, leveled)
			native = native.WithPoint(pt)
			native[coord.E] = start[coord.E] + (end[coord.E]-start[coord.E])*float64(i+1)/float64(n)
		}
		if !m.guard.Reachable(native[coord.X], native[coord.Y]) {
			return nil, errors.Wrapf(kinematics.ErrUnreachable, "segment %d X%.3f Y%.3f", i, native[coord.X], native[coord.Y])
		}
		p, err := m.solveLeveled(native, leveled)
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}
		plans = append(plans, p)
	}
	plans[n-1].Clamped = clamped

	m.current = end
	m.publish()
	return plans, nil
}

// SetActuators sets the current position from actuator coordinates,
// e.g. after homing a delta machine.
func (m *Machine) SetActuators(a kinematics.Actuators) error {
	p, err := m.kin.Forward(a)
	if err != nil {
		return err
	}
	return m.mutate(func() error {
		m.current = m.current.WithPoint(p)
		return nil
	})
}
