// Package homing tracks which axes have a trusted position and drives the
// stepper enable lines that can invalidate it.
package homing

import (
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrUnhomed matches every *UnhomedError.
var ErrUnhomed = errors.New("homing: axis not homed")

// UnhomedError names the axes that must be homed before moving.
type UnhomedError struct {
	Axes []coord.Axis
}

func (e *UnhomedError) Error() string {
	var b strings.Builder
	b.WriteString("home ")
	for _, a := range e.Axes {
		b.WriteString(a.String())
	}
	b.WriteString(" first")
	return b.String()
}

func (e *UnhomedError) Is(target error) bool { return target == ErrUnhomed }

// Config controls when motion requires homing.
type Config struct {
	// RequireHoming refuses moves on axes that were never homed.
	RequireHoming bool `json:"require_homing"`

	// HomeAfterDeactivate also refuses moves once an axis lost its
	// position, e.g. because its driver was disabled.
	HomeAfterDeactivate bool `json:"home_after_deactivate"`

	// HomeToMax homes an axis toward its max end instead of its min.
	HomeToMax [coord.NumLinear]bool `json:"home_to_max"`

	Drivers DriverLayout `json:"drivers"`
}

// Tracker holds the per-axis known and homed flags. Flags are atomic
// bitmasks so the motion path can read them while the main loop writes.
type Tracker struct {
	cfg   Config
	table Table
	drv   Driver

	mx    sync.Mutex
	known atomic.Uint32
	homed atomic.Uint32
}

// New creates a tracker with every axis unknown. drv may be nil when no
// enable lines are wired.
func New(cfg Config, drv Driver) *Tracker {
	if drv == nil {
		drv = nopDriver{}
	}
	return &Tracker{cfg: cfg, table: cfg.Drivers.Table(), drv: drv}
}

func bit(a coord.Axis) uint32 { return 1 << uint(a) }

// Known reports whether the position of axis can be trusted.
func (t *Tracker) Known(a coord.Axis) bool { return t.known.Load()&bit(a) != 0 }

// Homed reports whether axis was homed since startup.
func (t *Tracker) Homed(a coord.Axis) bool { return t.homed.Load()&bit(a) != 0 }

// SetHomed marks axes as homed after a completed homing cycle.
func (t *Tracker) SetHomed(axes ...coord.Axis) {
	var m uint32
	for _, a := range axes {
		if a.Linear() {
			m |= bit(a)
		}
	}
	t.mx.Lock()
	defer t.mx.Unlock()
	t.homed.Store(t.homed.Load() | m)
	t.known.Store(t.known.Load() | m)
}

func (t *Tracker) forget(a coord.Axis) {
	if !a.Linear() {
		return
	}
	t.known.Store(t.known.Load() &^ bit(a))
}

// Fault drops the known position of axis, e.g. after a driver error.
func (t *Tracker) Fault(a coord.Axis, reason string) {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.forget(a)
	log.Printf("ERROR: %s axis fault: %s", a, reason)
}

// Enable powers every driver channel of axis.
func (t *Tracker) Enable(a coord.Axis) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.set(a, true)
}

// Disable powers down every driver channel of axis. The axis position is
// no longer known afterwards even if a channel failed.
func (t *Tracker) Disable(a coord.Axis) error {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.forget(a)
	return t.set(a, false)
}

// EnableAll powers every configured channel.
func (t *Tracker) EnableAll() error {
	t.mx.Lock()
	defer t.mx.Unlock()
	var err error
	for a := range t.table {
		err = multierr.Append(err, t.set(coord.Axis(a), true))
	}
	return err
}

// DisableAll powers every channel down and forgets all positions.
func (t *Tracker) DisableAll() error {
	t.mx.Lock()
	defer t.mx.Unlock()
	var err error
	for a := range t.table {
		t.forget(coord.Axis(a))
		err = multierr.Append(err, t.set(coord.Axis(a), false))
	}
	return err
}

func (t *Tracker) set(a coord.Axis, on bool) error {
	var err error
	for _, ch := range t.table[a] {
		if cerr := t.drv.SetEnabled(ch, on); cerr != nil {
			err = multierr.Append(err, errors.Wrapf(cerr, "driver %s", ch))
		}
	}
	return err
}

// Reset returns every axis to unknown without touching the drivers.
func (t *Tracker) Reset() {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.known.Store(0)
	t.homed.Store(0)
}

// AxisUnhomedError returns an *UnhomedError naming the requested axes
// that may not move yet, or nil.
func (t *Tracker) AxisUnhomedError(x, y, z bool) error {
	if !t.cfg.RequireHoming {
		return nil
	}
	flags := t.homed.Load()
	if t.cfg.HomeAfterDeactivate {
		flags = t.known.Load()
	}

	var missing []coord.Axis
	for a, want := range [coord.NumLinear]bool{x, y, z} {
		if want && flags&bit(coord.Axis(a)) == 0 {
			missing = append(missing, coord.Axis(a))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &UnhomedError{Axes: missing}
}

// Flags is a printable view of the tracker.
type Flags struct {
	Known string `json:"known"`
	Homed string `json:"homed"`
}

func (t *Tracker) Flags() Flags {
	return Flags{Known: axisString(t.known.Load()), Homed: axisString(t.homed.Load())}
}

func axisString(m uint32) string {
	var b strings.Builder
	for _, a := range coord.LinearAxes {
		if m&bit(a) != 0 {
			b.WriteString(a.String())
		}
	}
	return b.String()
}
