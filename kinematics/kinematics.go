// Package kinematics converts between cartesian native positions and the
// actuator space of the supported machine geometries.
package kinematics

import (
	"math"
	"strings"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// ErrUnreachable is returned when a position has no actuator solution.
// Callers must refuse the move; the value is never clamped.
var ErrUnreachable = errors.New("kinematics: position is geometrically unreachable")

// Actuators holds one coordinate per motor: tower carriage heights for
// delta, arm angles and Z for SCARA, XYZ for cartesian.
type Actuators [3]float64

// Kinematics is implemented by every machine geometry.
type Kinematics interface {
	// Type returns the geometry name, e.g. "delta".
	Type() string

	// Inverse maps a native cartesian position to actuator coordinates.
	Inverse(p coord.Point) (Actuators, error)

	// Forward maps actuator coordinates back to a native cartesian position.
	Forward(a Actuators) (coord.Point, error)

	// Reachable reports whether the tool can reach native x,y.
	Reachable(x, y float64) bool
}

// Geometry names accepted by New.
const (
	TypeCartesian = "cartesian"
	TypeDelta     = "delta"
	TypeSCARA     = "scara"
)

// Config selects and parameterizes a geometry.
type Config struct {
	Type string `json:"type"`

	// Travel range of the linear axes, used by cartesian machines.
	Min [coord.NumLinear]float64 `json:"min"`
	Max [coord.NumLinear]float64 `json:"max"`

	Delta DeltaParams `json:"delta"`
	SCARA SCARAParams `json:"scara"`
}

// New builds the geometry named by cfg.Type.
func New(cfg Config) (Kinematics, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeCartesian, "":
		return NewCartesian(cfg.Min, cfg.Max)
	case TypeDelta:
		return NewDelta(cfg.Delta)
	case TypeSCARA:
		return NewSCARA(cfg.SCARA)
	}
	return nil, errors.Errorf("unsupported kinematics type: %s", cfg.Type)
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
func radians(deg float64) float64 { return deg * math.Pi / 180 }
