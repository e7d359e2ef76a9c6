// Package workspace tracks the offsets between native machine coordinates
// and the logical coordinates commands are written in.
//
// The offset of an axis is the sum of its home offset, its position shift
// and, when enabled, the offset of the active coordinate system:
//
//	logical = native + offset
package workspace

import (
	"sync"
	"sync/atomic"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// DefaultMaxCoordinateSystems matches the G54-G59.3 range.
const DefaultMaxCoordinateSystems = 9

// ErrCoordinateSystemRange is returned when selecting or writing a
// coordinate system index that does not exist. Nothing is changed.
var ErrCoordinateSystemRange = errors.New("workspace: coordinate system out of range")

// Offsets holds one value per linear axis.
type Offsets [coord.NumLinear]float64

func (o Offsets) add(b Offsets) Offsets {
	for i := range o {
		o[i] += b[i]
	}
	return o
}

// Config configures a Workspace.
type Config struct {
	HomeOffset Offsets `json:"home_offset"`

	// CoordinateSystems enables selectable work coordinate systems.
	CoordinateSystems    bool `json:"coordinate_systems"`
	MaxCoordinateSystems int  `json:"max_coordinate_systems"`
}

// ChangeFunc is called after the offset of axis changed.
type ChangeFunc func(axis coord.Axis, offset float64)

// Workspace is written by a single owner and read from anywhere.
type Workspace struct {
	mx sync.Mutex

	home    Offsets
	shift   Offsets
	systems []Offsets
	active  int
	multi   bool

	current  atomic.Pointer[Offsets]
	onChange ChangeFunc
}

// New creates a Workspace with the configured home offset.
func New(cfg Config) *Workspace {
	w := &Workspace{
		home:  cfg.HomeOffset,
		multi: cfg.CoordinateSystems,
	}
	if w.multi {
		n := cfg.MaxCoordinateSystems
		if n <= 0 {
			n = DefaultMaxCoordinateSystems
		}
		w.systems = make([]Offsets, n)
	}
	w.publish(nil)
	return w
}

// OnChange registers fn to be called for every axis whose offset changes.
func (w *Workspace) OnChange(fn ChangeFunc) {
	w.mx.Lock()
	w.onChange = fn
	w.mx.Unlock()
}

func (w *Workspace) compose() Offsets {
	o := w.home.add(w.shift)
	if w.multi {
		o = o.add(w.systems[w.active])
	}
	return o
}

// publish swaps in the recomposed offsets and notifies for axes that moved.
// Must be called with mx held (or before w is shared).
func (w *Workspace) publish(old *Offsets) {
	o := w.compose()
	w.current.Store(&o)
	if old == nil || w.onChange == nil {
		return
	}
	for _, a := range coord.LinearAxes {
		if old[a] != o[a] {
			w.onChange(a, o[a])
		}
	}
}

func (w *Workspace) update(fn func() error) error {
	w.mx.Lock()
	defer w.mx.Unlock()
	old := *w.current.Load()
	if err := fn(); err != nil {
		return err
	}
	w.publish(&old)
	return nil
}

// Offset returns the composed offset for axis. E has no offset.
func (w *Workspace) Offset(axis coord.Axis) float64 {
	if !axis.Linear() {
		return 0
	}
	return w.current.Load()[axis]
}

// Offsets returns all composed offsets at once.
func (w *Workspace) Offsets() Offsets {
	return *w.current.Load()
}

// ToLogical converts a native coordinate to logical space.
func (w *Workspace) ToLogical(native float64, axis coord.Axis) float64 {
	return native + w.Offset(axis)
}

// ToNative converts a logical coordinate to native space.
func (w *Workspace) ToNative(logical float64, axis coord.Axis) float64 {
	return logical - w.Offset(axis)
}

// PositionToNative converts every linear axis of p from logical to native.
func (w *Workspace) PositionToNative(p coord.Position) coord.Position {
	o := w.current.Load()
	for _, a := range coord.LinearAxes {
		p[a] -= o[a]
	}
	return p
}

// PositionToLogical converts every linear axis of p from native to logical.
func (w *Workspace) PositionToLogical(p coord.Position) coord.Position {
	o := w.current.Load()
	for _, a := range coord.LinearAxes {
		p[a] += o[a]
	}
	return p
}

func checkAxis(axis coord.Axis) error {
	if !axis.Linear() {
		return errors.Errorf("workspace: axis %s has no offset", axis)
	}
	return nil
}

// SetHomeOffset sets the home offset of axis.
func (w *Workspace) SetHomeOffset(axis coord.Axis, v float64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	return w.update(func() error {
		w.home[axis] = v
		return nil
	})
}

// HomeOffset returns the raw home offset of axis.
func (w *Workspace) HomeOffset(axis coord.Axis) float64 {
	if !axis.Linear() {
		return 0
	}
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.home[axis]
}

// SetPositionShift sets the position shift of axis.
func (w *Workspace) SetPositionShift(axis coord.Axis, v float64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	return w.update(func() error {
		w.shift[axis] = v
		return nil
	})
}

// SetLogicalPosition adjusts the position shift of axis so that the native
// coordinate reads as logical afterwards.
func (w *Workspace) SetLogicalPosition(axis coord.Axis, native, logical float64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	return w.update(func() error {
		rest := w.compose()[axis] - w.shift[axis]
		w.shift[axis] = logical - native - rest
		return nil
	})
}

// SetCoordinateSystem stores the offsets of coordinate system i.
func (w *Workspace) SetCoordinateSystem(i int, o Offsets) error {
	return w.update(func() error {
		if !w.multi || i < 0 || i >= len(w.systems) {
			return errors.Wrapf(ErrCoordinateSystemRange, "set %d", i)
		}
		w.systems[i] = o
		return nil
	})
}

// SelectCoordinateSystem makes system i active. An out of range index is
// rejected and leaves the active system unchanged.
func (w *Workspace) SelectCoordinateSystem(i int) error {
	return w.update(func() error {
		if !w.multi || i < 0 || i >= len(w.systems) {
			return errors.Wrapf(ErrCoordinateSystemRange, "select %d", i)
		}
		w.active = i
		return nil
	})
}

// ActiveCoordinateSystem returns the selected system index.
func (w *Workspace) ActiveCoordinateSystem() int {
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.active
}

// Reset zeroes all offset components and selects system 0.
func (w *Workspace) Reset() {
	w.update(func() error {
		w.home = Offsets{}
		w.shift = Offsets{}
		for i := range w.systems {
			w.systems[i] = Offsets{}
		}
		w.active = 0
		return nil
	})
}

// Snapshot is the persisted form of a Workspace.
type Snapshot struct {
	HomeOffset        Offsets   `json:"home_offset"`
	PositionShift     Offsets   `json:"position_shift"`
	CoordinateSystems []Offsets `json:"coordinate_systems,omitempty"`
	Active            int       `json:"active_coordinate_system"`
}

// Snapshot copies the current offset components.
func (w *Workspace) Snapshot() Snapshot {
	w.mx.Lock()
	defer w.mx.Unlock()
	s := Snapshot{
		HomeOffset:    w.home,
		PositionShift: w.shift,
		Active:        w.active,
	}
	if w.multi {
		s.CoordinateSystems = append([]Offsets(nil), w.systems...)
	}
	return s
}

// Restore replaces all components from s. Systems beyond the configured
// maximum, or an invalid active index, reject the whole snapshot.
func (w *Workspace) Restore(s Snapshot) error {
	return w.update(func() error {
		if len(s.CoordinateSystems) > len(w.systems) {
			return errors.Wrapf(ErrCoordinateSystemRange, "restore %d systems", len(s.CoordinateSystems))
		}
		if s.Active != 0 && (s.Active < 0 || s.Active >= len(w.systems)) {
			return errors.Wrapf(ErrCoordinateSystemRange, "restore active %d", s.Active)
		}
		w.home = s.HomeOffset
		w.shift = s.PositionShift
		for i := range w.systems {
			w.systems[i] = Offsets{}
		}
		copy(w.systems, s.CoordinateSystems)
		w.active = s.Active
		return nil
	})
}
