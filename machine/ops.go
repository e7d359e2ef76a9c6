package machine

import (
	"log"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/mastercactapus/motioncore/meshlevel"
	"github.com/mastercactapus/motioncore/workspace"
	"github.com/pkg/errors"
)

// homePosition is where axis a sits after homing.
func (m *Machine) homePosition(a coord.Axis) float64 {
	if d, ok := m.kin.(*kinematics.Delta); ok {
		if a == coord.Z {
			return d.Params().Height
		}
		return 0
	}
	lo, hi := m.guard.Bounds(a)
	if m.cfg.Homing.HomeToMax[a] {
		return hi
	}
	return lo
}

// Home records a completed homing cycle for axes; with no axes all
// linear axes were homed.
func (m *Machine) Home(axes ...coord.Axis) error {
	if len(axes) == 0 {
		axes = coord.LinearAxes[:]
	}
	for _, a := range axes {
		if !a.Linear() {
			return errors.Errorf("cannot home %s", a)
		}
	}
	return m.mutate(func() error {
		for _, a := range axes {
			m.current[a] = m.homePosition(a)
		}
		m.homing.SetHomed(axes...)
		log.Printf("machine: homed %v", axes)
		return nil
	})
}

// DisableAxis powers down the drivers of a; its position is lost.
func (m *Machine) DisableAxis(a coord.Axis) error {
	return m.mutate(func() error {
		return m.homing.Disable(a)
	})
}

// EnableAxis powers the drivers of a.
func (m *Machine) EnableAxis(a coord.Axis) error {
	return m.mutate(func() error {
		return m.homing.Enable(a)
	})
}

// DisableAll powers down every driver.
func (m *Machine) DisableAll() error {
	return m.mutate(m.homing.DisableAll)
}

func (m *Machine) SelectCoordinateSystem(i int) error {
	return m.mutate(func() error {
		return m.ws.SelectCoordinateSystem(i)
	})
}

func (m *Machine) SetCoordinateSystem(i int, o workspace.Offsets) error {
	return m.mutate(func() error {
		return m.ws.SetCoordinateSystem(i, o)
	})
}

func (m *Machine) SetHomeOffset(a coord.Axis, v float64) error {
	return m.mutate(func() error {
		return m.ws.SetHomeOffset(a, v)
	})
}

func (m *Machine) SetPositionShift(a coord.Axis, v float64) error {
	return m.mutate(func() error {
		return m.ws.SetPositionShift(a, v)
	})
}

// SetLogicalPosition makes the current position of a read as v.
func (m *Machine) SetLogicalPosition(a coord.Axis, v float64) error {
	return m.mutate(func() error {
		return m.ws.SetLogicalPosition(a, m.current[a], v)
	})
}

func (m *Machine) SetSoftEndstops(on bool) {
	m.mutate(func() error {
		m.guard.SetEnabled(on)
		return nil
	})
}

func (m *Machine) SetLevelingEnabled(on bool) {
	m.mutate(func() error {
		m.level.SetEnabled(on)
		return nil
	})
}

func (m *Machine) SetFadeHeight(h float64) error {
	return m.mutate(func() error {
		return m.level.SetFadeHeight(h)
	})
}

// LoadGrid installs a height map sampled uniformly over the configured
// mesh area, indexed [x][y]. It is read bilinearly or as a UBL mesh
// depending on the leveling strategy.
func (m *Machine) LoadGrid(z [][]float64) error {
	lc := m.cfg.Leveling
	var (
		c   meshlevel.Compensator
		err error
	)
	switch lc.Strategy {
	case meshlevel.StrategyBilinear:
		if len(z) < 2 || len(z[0]) < 2 {
			return errors.New("grid needs at least 2x2 points")
		}
		c, err = meshlevel.NewGrid(lc.MeshMin[0], lc.MeshMin[1],
			(lc.MeshMax[0]-lc.MeshMin[0])/float64(len(z)-1),
			(lc.MeshMax[1]-lc.MeshMin[1])/float64(len(z[0])-1),
			z)
	case meshlevel.StrategyUBL:
		return m.LoadMesh(z)
	default:
		return errors.Errorf("%s leveling does not use a grid", lc.Strategy)
	}
	if err != nil {
		return err
	}
	return m.setCompensator(c)
}

// LoadMesh installs a UBL mesh covering the configured mesh area.
// Unprobed points are NaN.
func (m *Machine) LoadMesh(z [][]float64) error {
	lc := m.cfg.Leveling
	mesh, err := meshlevel.NewUBLMesh(lc.MeshMin[0], lc.MeshMin[1], lc.MeshMax[0], lc.MeshMax[1], z)
	if err != nil {
		return err
	}
	return m.setCompensator(mesh)
}

// LoadProbePoints triangulates raw probe readings measured relative to
// reference.
func (m *Machine) LoadProbePoints(points []coord.Point, reference float64) error {
	mesh, err := meshlevel.NewTriangulatedMesh(meshlevel.RelativeTo(reference, points))
	if err != nil {
		return err
	}
	return m.setCompensator(mesh)
}

// ClearLeveling drops the height map.
func (m *Machine) ClearLeveling() error {
	return m.setCompensator(meshlevel.None{})
}

// TiltMesh folds the plane through fresh probe samples into the loaded
// UBL mesh.
func (m *Machine) TiltMesh(samples []coord.Point) error {
	mesh, ok := m.level.Compensator().(*meshlevel.UBLMesh)
	if !ok {
		return errors.New("no UBL mesh loaded")
	}
	tilted, err := mesh.Tilt(samples)
	if err != nil {
		return err
	}
	return m.setCompensator(tilted)
}

func (m *Machine) setCompensator(c meshlevel.Compensator) error {
	return m.mutate(func() error {
		if err := m.level.SetCompensator(c); err != nil {
			return err
		}
		log.Printf("machine: loaded %T height map", c)
		return nil
	})
}

// Calibrate installs new delta geometry and recomputes the limits that
// depend on it.
func (m *Machine) Calibrate(p kinematics.DeltaParams) error {
	d, ok := m.kin.(*kinematics.Delta)
	if !ok {
		return errors.Errorf("cannot calibrate %s kinematics", m.kin.Type())
	}
	return m.mutate(func() error {
		if err := d.Recalc(p); err != nil {
			return err
		}
		m.postprocess()
		return nil
	})
}
