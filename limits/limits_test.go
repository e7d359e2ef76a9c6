package limits

import (
	"io"
	"log"
	"os"
	"testing"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/mastercactapus/motioncore/kinematics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartesianGuard(t *testing.T, cfg Config) *Guard {
	k, err := kinematics.NewCartesian(cfg.Min, cfg.Max)
	require.NoError(t, err)
	g, err := New(k, cfg)
	require.NoError(t, err)
	return g
}

var box = Config{
	Enabled: true,
	Min:     [3]float64{0, 0, 0},
	Max:     [3]float64{200, 200, 180},
}

func TestGuard_Cartesian(t *testing.T) {
	g := cartesianGuard(t, box)

	assert.True(t, g.Reachable(100, 100))
	assert.False(t, g.Reachable(250, 100))

	p := coord.Pos(250, 100, 10, 3)
	g.Clamp(&p)
	assert.Equal(t, coord.Pos(200, 100, 10, 3), p)

	p = coord.Pos(-5, 300, 190, -1)
	g.Clamp(&p)
	assert.Equal(t, coord.Pos(0, 200, 180, -1), p)
}

func TestGuard_Disabled(t *testing.T) {
	g := cartesianGuard(t, box)
	g.SetEnabled(false)
	assert.False(t, g.Enabled())

	p := coord.Pos(250, 100, 10, 0)
	g.Clamp(&p)
	assert.Equal(t, coord.Pos(250, 100, 10, 0), p)
}

func TestGuard_ReachableByProbe(t *testing.T) {
	cfg := box
	cfg.Probe = [2]float64{30, -10}
	g := cartesianGuard(t, cfg)

	assert.True(t, g.ReachableByProbe(100, 100))
	// the probe would sit at x=-10
	assert.False(t, g.ReachableByProbe(20, 100))
	assert.True(t, g.Reachable(20, 100))
	// the probe would sit at y=205
	assert.False(t, g.ReachableByProbe(100, 195))
	assert.False(t, g.ReachableByProbe(250, 100))
}

func TestGuard_Update(t *testing.T) {
	g := cartesianGuard(t, box)

	g.Update(coord.X, 15)
	lo, hi := g.Bounds(coord.X)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 200.0, hi)
	lo, hi = g.LogicalBounds(coord.X)
	assert.Equal(t, 15.0, lo)
	assert.Equal(t, 215.0, hi)

	g.UpdateAll([3]float64{1, 2, 3})
	lo, hi = g.LogicalBounds(coord.Z)
	assert.Equal(t, 3.0, lo)
	assert.Equal(t, 183.0, hi)

	// E has no bounds
	g.Update(coord.E, 5)
	assert.Equal(t, Limits{{0, 200}, {0, 200}, {0, 180}}, g.All())
}

func TestGuard_DeltaZ(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	d, err := kinematics.NewDelta(kinematics.DeltaParams{Height: 250, Radius: 100, DiagonalRod: 250, PrintableRadius: 90})
	require.NoError(t, err)
	g, err := New(d, Config{
		Enabled: true,
		Min:     [3]float64{-90, -90, 0},
		Max:     [3]float64{90, 90, 300},
	})
	require.NoError(t, err)

	_, hi := g.Bounds(coord.Z)
	assert.Equal(t, 250.0, hi)
	assert.False(t, g.Reachable(80, 80))

	p := d.Params()
	p.Height = 240
	require.NoError(t, d.Recalc(p))
	g.UpdateAll([3]float64{})
	_, hi = g.Bounds(coord.Z)
	assert.Equal(t, 240.0, hi)
}

func TestGuard_DualX(t *testing.T) {
	cfg := box
	cfg.DualX = DualX{Enabled: true, X2Min: 20, X2Max: 230, T1Home: 240}
	g := cartesianGuard(t, cfg)

	require.NoError(t, g.SetActiveCarriage(1))
	lo, hi := g.Bounds(coord.X)
	assert.Equal(t, 20.0, lo)
	assert.Equal(t, 240.0, hi)

	require.NoError(t, g.SetActiveCarriage(0))
	require.NoError(t, g.SetDuplication(true, 100))
	lo, hi = g.Bounds(coord.X)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 140.0, hi)

	require.NoError(t, g.SetDuplication(false, 0))
	_, hi = g.Bounds(coord.X)
	assert.Equal(t, 200.0, hi)

	assert.Error(t, g.SetActiveCarriage(2))

	single := cartesianGuard(t, box)
	assert.Error(t, single.SetActiveCarriage(1))
	assert.Error(t, single.SetDuplication(true, 50))
}

func TestNew_Invalid(t *testing.T) {
	k, err := kinematics.NewCartesian([3]float64{}, [3]float64{1, 1, 1})
	require.NoError(t, err)

	_, err = New(nil, box)
	assert.Error(t, err)
	_, err = New(k, Config{Min: [3]float64{5}, Max: [3]float64{1}})
	assert.Error(t, err)
	_, err = New(k, Config{DualX: DualX{Enabled: true, X2Min: 10, X2Max: 5}})
	assert.Error(t, err)
}
