// Package machine owns the coordinate transform state of one machine and
// turns logical targets into checked actuator positions.
package machine

import (
	"log"
	"sync"

	"github.com/mastercactapus/motioncore/config"
	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/homing"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/mastercactapus/motioncore/limits"
	"github.com/mastercactapus/motioncore/meshlevel"
	"github.com/mastercactapus/motioncore/workspace"
	"github.com/pkg/errors"
)

// Machine is the single owner of offsets, geometry, height map and
// homing state. Mutating methods are meant for one main loop; they are
// serialized, and readers of the components never block on them.
type Machine struct {
	cfg config.Config

	kin    kinematics.Kinematics
	ws     *workspace.Workspace
	guard  *limits.Guard
	level  *meshlevel.Leveling
	homing *homing.Tracker

	mx      sync.Mutex
	current coord.Position

	state chan State
}

// State is a snapshot of the machine for collaborators.
type State struct {
	Native           coord.Position    `json:"native"`
	Logical          coord.Position    `json:"logical"`
	Offsets          workspace.Offsets `json:"offsets"`
	CoordinateSystem int               `json:"coordinate_system"`
	Homing           homing.Flags      `json:"homing"`
	SoftEndstops     bool              `json:"soft_endstops"`
	Bounds           limits.Limits     `json:"logical_bounds"`
	Leveling         bool              `json:"leveling"`
	FadeHeight       float64           `json:"fade_height"`
	Kinematics       string            `json:"kinematics"`
}

// New builds every component from cfg. drv receives stepper enable
// changes and may be nil.
func New(cfg config.Config, drv homing.Driver) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	kin, err := kinematics.New(cfg.Kinematics)
	if err != nil {
		return nil, err
	}
	guard, err := limits.New(kin, cfg.SoftEndstops)
	if err != nil {
		return nil, err
	}
	level, err := meshlevel.NewLeveling(cfg.Leveling.Strategy)
	if err != nil {
		return nil, err
	}
	if err = level.SetFadeHeight(cfg.Leveling.FadeHeight); err != nil {
		return nil, err
	}
	level.SetEnabled(cfg.Leveling.Enabled)

	m := &Machine{
		cfg:    cfg,
		kin:    kin,
		ws:     workspace.New(cfg.Workspace),
		guard:  guard,
		level:  level,
		homing: homing.New(cfg.Homing, drv),
		state:  make(chan State, 16),
	}
	m.ws.OnChange(m.guard.Update)
	m.guard.UpdateAll(m.ws.Offsets())

	log.Printf("machine: %s kinematics, %s leveling", kin.Type(), level.Strategy())
	return m, nil
}

func (m *Machine) Kinematics() kinematics.Kinematics { return m.kin }
func (m *Machine) Workspace() *workspace.Workspace   { return m.ws }
func (m *Machine) Guard() *limits.Guard              { return m.guard }
func (m *Machine) Leveling() *meshlevel.Leveling     { return m.level }
func (m *Machine) Homing() *homing.Tracker           { return m.homing }

// Events delivers a State after every change. Slow readers miss states
// rather than blocking the machine.
func (m *Machine) Events() <-chan State { return m.state }

// State returns the current state.
func (m *Machine) State() State {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() State {
	s := State{
		Native:           m.current,
		Logical:          m.ws.PositionToLogical(m.current),
		Offsets:          m.ws.Offsets(),
		CoordinateSystem: m.ws.ActiveCoordinateSystem(),
		Homing:           m.homing.Flags(),
		SoftEndstops:     m.guard.Enabled(),
		Leveling:         m.level.Enabled(),
		FadeHeight:       m.level.FadeHeight(),
		Kinematics:       m.kin.Type(),
	}
	for _, a := range coord.LinearAxes {
		s.Bounds[a][0], s.Bounds[a][1] = m.guard.LogicalBounds(a)
	}
	return s
}

// publish sends the current state without blocking. Callers hold mx.
func (m *Machine) publish() {
	select {
	case m.state <- m.snapshot():
	default:
	}
}

// mutate runs fn under the machine lock and publishes the new state if
// it succeeded.
func (m *Machine) mutate(fn func() error) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := fn(); err != nil {
		return err
	}
	m.publish()
	return nil
}

// Position returns the current logical position.
func (m *Machine) Position() coord.Position {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.ws.PositionToLogical(m.current)
}

// Reachable reports whether a logical XY position is reachable.
func (m *Machine) Reachable(x, y float64) bool {
	return m.guard.Reachable(m.ws.ToNative(x, coord.X), m.ws.ToNative(y, coord.Y))
}

// ReachableByProbe is Reachable for both the nozzle and the probe.
func (m *Machine) ReachableByProbe(x, y float64) bool {
	return m.guard.ReachableByProbe(m.ws.ToNative(x, coord.X), m.ws.ToNative(y, coord.Y))
}
