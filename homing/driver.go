package homing

import (
	"fmt"

	"github.com/mastercactapus/motioncore/coord"
)

// Channel names one stepper driver enable line, e.g. "X2" or "E0".
type Channel string

// Driver switches stepper driver enable lines.
type Driver interface {
	SetEnabled(ch Channel, on bool) error
}

type nopDriver struct{}

func (nopDriver) SetEnabled(Channel, bool) error { return nil }

// DriverLayout describes how many drivers move each axis.
type DriverLayout struct {
	DualX     bool `json:"dual_x"`
	DualY     bool `json:"dual_y"`
	ZDrivers  int  `json:"z_drivers"`
	Extruders int  `json:"extruders"`
}

// Table lists the enable channels of each axis.
type Table [coord.NumAxis][]Channel

// Table builds the channel table. Missing counts default to one.
func (l DriverLayout) Table() Table {
	var t Table
	t[coord.X] = []Channel{"X"}
	if l.DualX {
		t[coord.X] = append(t[coord.X], "X2")
	}
	t[coord.Y] = []Channel{"Y"}
	if l.DualY {
		t[coord.Y] = append(t[coord.Y], "Y2")
	}
	t[coord.Z] = numbered("Z", l.ZDrivers, false)
	t[coord.E] = numbered("E", l.Extruders, true)
	return t
}

// numbered returns n channels named Z, Z2, Z3 or E0, E1, E2.
func numbered(prefix string, n int, zeroBased bool) []Channel {
	if n < 1 {
		n = 1
	}
	out := make([]Channel, n)
	for i := range out {
		switch {
		case zeroBased:
			out[i] = Channel(fmt.Sprintf("%s%d", prefix, i))
		case i == 0:
			out[i] = Channel(prefix)
		default:
			out[i] = Channel(fmt.Sprintf("%s%d", prefix, i+1))
		}
	}
	return out
}
