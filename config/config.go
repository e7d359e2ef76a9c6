// Package config loads the machine description.
package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/homing"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/mastercactapus/motioncore/limits"
	"github.com/mastercactapus/motioncore/meshlevel"
	"github.com/mastercactapus/motioncore/workspace"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config is the complete machine description.
type Config struct {
	Kinematics   kinematics.Config `json:"kinematics"`
	Workspace    workspace.Config  `json:"workspace"`
	SoftEndstops limits.Config     `json:"soft_endstops"`
	Homing       homing.Config     `json:"homing"`
	Leveling     Leveling          `json:"leveling"`
}

// Leveling selects the bed compensation strategy and the area a loaded
// height map covers.
type Leveling struct {
	Strategy   string  `json:"strategy"`
	Enabled    bool    `json:"enabled"`
	FadeHeight float64 `json:"fade_height"`

	// SegmentLength is the longest XY move that is leveled without
	// splitting it.
	SegmentLength float64 `json:"segment_length"`

	MeshMin [2]float64 `json:"mesh_min"`
	MeshMax [2]float64 `json:"mesh_max"`
}

// DefaultSegmentLength is used when Leveling.SegmentLength is unset.
const DefaultSegmentLength = 5.0

// Load reads and validates the JSON file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Decode parses a JSON document, fills in defaults and validates it.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated 200x200x200 cartesian machine.
func Default() *Config {
	cfg := &Config{
		Kinematics: kinematics.Config{
			Type: kinematics.TypeCartesian,
			Max:  [3]float64{200, 200, 200},
		},
		SoftEndstops: limits.Config{
			Enabled: true,
			Max:     [3]float64{200, 200, 200},
		},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in missing values.
func applyDefaults(cfg *Config) {
	k := &cfg.Kinematics
	k.Type = strings.ToLower(strings.TrimSpace(k.Type))
	if k.Type == "" {
		k.Type = kinematics.TypeCartesian
	}

	if k.Type == kinematics.TypeDelta {
		d := &k.Delta
		if d.PrintableRadius == 0 {
			d.PrintableRadius = d.Radius
		}
		if d.CalibrationRadius == 0 {
			d.CalibrationRadius = d.PrintableRadius * 0.8
		}
		if d.SegmentsPerSecond == 0 {
			d.SegmentsPerSecond = 200
		}
		// soft endstops default to the printable cylinder
		se := &cfg.SoftEndstops
		if se.Min == se.Max {
			r := d.PrintableRadius
			se.Min = [3]float64{-r, -r, 0}
			se.Max = [3]float64{r, r, d.Height}
		}
	}

	if cfg.Workspace.CoordinateSystems && cfg.Workspace.MaxCoordinateSystems == 0 {
		cfg.Workspace.MaxCoordinateSystems = workspace.DefaultMaxCoordinateSystems
	}

	l := &cfg.Leveling
	l.Strategy = strings.ToLower(strings.TrimSpace(l.Strategy))
	if l.Strategy == "" {
		l.Strategy = meshlevel.StrategyNone
	}
	if l.SegmentLength == 0 {
		l.SegmentLength = DefaultSegmentLength
	}
}

// Validate reports every problem found in cfg at once.
func (cfg *Config) Validate() error {
	var err error

	if _, kerr := kinematics.New(cfg.Kinematics); kerr != nil {
		err = multierr.Append(err, kerr)
	}

	se := cfg.SoftEndstops
	for _, a := range coord.LinearAxes {
		if se.Min[a] > se.Max[a] {
			err = multierr.Append(err, errors.Errorf("soft_endstops: %s min %g is above max %g", a, se.Min[a], se.Max[a]))
		}
	}
	if se.DualX.Enabled && se.DualX.X2Min > se.DualX.X2Max {
		err = multierr.Append(err, errors.New("soft_endstops: dual_x x2_min is above x2_max"))
	}

	if cfg.Workspace.MaxCoordinateSystems < 0 {
		err = multierr.Append(err, errors.New("workspace: max_coordinate_systems must not be negative"))
	}

	d := cfg.Homing.Drivers
	if d.ZDrivers < 0 || d.ZDrivers > 4 {
		err = multierr.Append(err, errors.Errorf("homing: z_drivers %d out of range", d.ZDrivers))
	}
	if d.Extruders < 0 || d.Extruders > 6 {
		err = multierr.Append(err, errors.Errorf("homing: extruders %d out of range", d.Extruders))
	}

	l := cfg.Leveling
	if _, lerr := meshlevel.NewLeveling(l.Strategy); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	if l.FadeHeight < 0 {
		err = multierr.Append(err, errors.Errorf("leveling: fade_height %g must not be negative", l.FadeHeight))
	}
	if l.SegmentLength < 0 {
		err = multierr.Append(err, errors.Errorf("leveling: segment_length %g must not be negative", l.SegmentLength))
	}
	if l.Strategy == meshlevel.StrategyBilinear || l.Strategy == meshlevel.StrategyUBL {
		if l.MeshMax[0] <= l.MeshMin[0] || l.MeshMax[1] <= l.MeshMin[1] {
			err = multierr.Append(err, errors.Errorf("leveling: mesh_max must be above mesh_min for %s", l.Strategy))
		}
	}

	return err
}
