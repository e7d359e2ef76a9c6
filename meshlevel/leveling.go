package meshlevel

import (
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

type levelState struct {
	comp    Compensator
	enabled bool
	fade    float64
}

// Leveling applies the active compensator with an optional fade out.
// Writers replace the whole state with one pointer swap, so Apply may be
// called concurrently with them.
type Leveling struct {
	strategy string
	state    atomic.Pointer[levelState]
}

// NewLeveling creates a disabled flat leveling holder for strategy.
func NewLeveling(strategy string) (*Leveling, error) {
	s := strings.ToLower(strings.TrimSpace(strategy))
	switch s {
	case "":
		s = StrategyNone
	case StrategyNone, StrategyBilinear, StrategyUBL, StrategyTriangulated:
	default:
		return nil, errors.Errorf("meshlevel: unknown strategy %q", strategy)
	}
	l := &Leveling{strategy: s}
	l.state.Store(&levelState{comp: None{}})
	return l, nil
}

func (l *Leveling) Strategy() string { return l.strategy }

func (l *Leveling) update(fn func(s *levelState)) {
	next := *l.state.Load()
	fn(&next)
	l.state.Store(&next)
}

// SetCompensator installs c. It must match the configured strategy;
// None is always accepted and clears the map.
func (l *Leveling) SetCompensator(c Compensator) error {
	if c == nil {
		c = None{}
	}
	var ok bool
	switch c.(type) {
	case None:
		ok = true
	case *Grid:
		ok = l.strategy == StrategyBilinear
	case *UBLMesh:
		ok = l.strategy == StrategyUBL
	case *TriangulatedMesh:
		ok = l.strategy == StrategyTriangulated
	}
	if !ok {
		return errors.Errorf("meshlevel: %T does not match strategy %s", c, l.strategy)
	}
	l.update(func(s *levelState) { s.comp = c })
	return nil
}

func (l *Leveling) Compensator() Compensator { return l.state.Load().comp }

func (l *Leveling) SetEnabled(v bool) { l.update(func(s *levelState) { s.enabled = v }) }
func (l *Leveling) Enabled() bool     { return l.state.Load().enabled }

// SetFadeHeight sets the height at which the correction reaches zero.
// Zero disables fading.
func (l *Leveling) SetFadeHeight(h float64) error {
	if !(h >= 0) {
		return errors.Errorf("meshlevel: invalid fade height %g", h)
	}
	l.update(func(s *levelState) { s.fade = h })
	return nil
}

func (l *Leveling) FadeHeight() float64 { return l.state.Load().fade }

// ZCorrection is the unfaded correction at x,y, or 0 when disabled.
func (l *Leveling) ZCorrection(x, y float64) float64 {
	s := l.state.Load()
	if !s.enabled {
		return 0
	}
	return s.comp.ZCorrection(x, y)
}

// FadeFactor is the fraction of the correction applied at z.
func (l *Leveling) FadeFactor(z float64) float64 {
	return l.state.Load().factor(z)
}

func (s *levelState) factor(z float64) float64 {
	if s.fade == 0 {
		return 1
	}
	if z >= s.fade {
		return 0
	}
	return 1 - z/s.fade
}

// Apply returns the leveled Z for a native position.
func (l *Leveling) Apply(x, y, z float64) float64 {
	s := l.state.Load()
	if !s.enabled {
		return z
	}
	f := s.factor(z)
	if f == 0 {
		return z
	}
	return z + s.comp.ZCorrection(x, y)*f
}

// Unapply is the inverse of Apply.
func (l *Leveling) Unapply(x, y, leveled float64) float64 {
	s := l.state.Load()
	if !s.enabled {
		return leveled
	}
	c := s.comp.ZCorrection(x, y)
	if s.fade == 0 {
		return leveled - c
	}

	// leveled = z + c*(1 - z/fade) for z below the fade height
	k := 1 - c/s.fade
	if k <= 0 {
		return leveled
	}
	z := (leveled - c) / k
	if z >= s.fade {
		return leveled
	}
	return z
}
