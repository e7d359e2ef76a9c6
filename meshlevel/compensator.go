// Package meshlevel corrects Z for a measured bed height map.
package meshlevel

// Compensator returns the bed height at a native XY position.
// Implementations are immutable once built so readers never need a lock.
type Compensator interface {
	ZCorrection(x, y float64) float64
}

// None is a flat bed.
type None struct{}

func (None) ZCorrection(x, y float64) float64 { return 0 }

// Strategy names accepted by NewCompensator.
const (
	StrategyNone         = "none"
	StrategyBilinear     = "bilinear"
	StrategyUBL          = "ubl"
	StrategyTriangulated = "triangulated"
)
