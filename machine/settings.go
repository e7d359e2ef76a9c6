package machine

import (
	"log"

	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/mastercactapus/motioncore/workspace"
	"github.com/pkg/errors"
)

// Settings are the values a storage collaborator persists between runs.
type Settings struct {
	Workspace    workspace.Snapshot      `json:"workspace"`
	Delta        *kinematics.DeltaParams `json:"delta,omitempty"`
	SoftEndstops bool                    `json:"soft_endstops"`
	Leveling     LevelingSettings        `json:"leveling"`
}

type LevelingSettings struct {
	Enabled    bool    `json:"enabled"`
	FadeHeight float64 `json:"fade_height"`
}

// Settings returns the current settings.
func (m *Machine) Settings() Settings {
	m.mx.Lock()
	defer m.mx.Unlock()

	s := Settings{
		Workspace:    m.ws.Snapshot(),
		SoftEndstops: m.guard.Enabled(),
		Leveling: LevelingSettings{
			Enabled:    m.level.Enabled(),
			FadeHeight: m.level.FadeHeight(),
		},
	}
	if d, ok := m.kin.(*kinematics.Delta); ok {
		p := d.Params()
		s.Delta = &p
	}
	return s
}

// defaults are the settings described by the config.
func (m *Machine) defaults() Settings {
	s := Settings{
		Workspace:    workspace.Snapshot{HomeOffset: m.cfg.Workspace.HomeOffset},
		SoftEndstops: m.cfg.SoftEndstops.Enabled,
		Leveling: LevelingSettings{
			Enabled:    m.cfg.Leveling.Enabled,
			FadeHeight: m.cfg.Leveling.FadeHeight,
		},
	}
	if _, ok := m.kin.(*kinematics.Delta); ok {
		p := m.cfg.Kinematics.Delta
		s.Delta = &p
	}
	return s
}

// ApplySettings validates s completely before changing anything, then
// installs it and recomputes everything derived from it.
func (m *Machine) ApplySettings(s Settings) error {
	return m.mutate(func() error {
		return m.apply(s)
	})
}

// ResetSettings returns to the configured values.
func (m *Machine) ResetSettings() error {
	return m.mutate(func() error {
		log.Println("machine: settings reset to defaults")
		return m.apply(m.defaults())
	})
}

func (m *Machine) apply(s Settings) error {
	d, isDelta := m.kin.(*kinematics.Delta)
	if s.Delta != nil {
		if !isDelta {
			return errors.Errorf("settings: delta parameters given for %s kinematics", m.kin.Type())
		}
		if err := s.Delta.Validate(); err != nil {
			return errors.Wrap(err, "settings")
		}
	}
	if s.Leveling.FadeHeight < 0 {
		return errors.Errorf("settings: invalid fade height %g", s.Leveling.FadeHeight)
	}
	if err := m.ws.Restore(s.Workspace); err != nil {
		return errors.Wrap(err, "settings")
	}

	if s.Delta != nil {
		if err := d.Recalc(*s.Delta); err != nil {
			return errors.Wrap(err, "settings")
		}
	}
	m.guard.SetEnabled(s.SoftEndstops)
	m.level.SetEnabled(s.Leveling.Enabled)
	if err := m.level.SetFadeHeight(s.Leveling.FadeHeight); err != nil {
		return err
	}

	m.postprocess()
	return nil
}

// postprocess recomputes values derived from geometry and offsets.
// Callers hold mx.
func (m *Machine) postprocess() {
	m.guard.UpdateAll(m.ws.Offsets())
}
