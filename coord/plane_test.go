package coord

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitPlane_Exact(t *testing.T) {
	want := Plane{A: 0.02, B: -0.01, D: 0.3}
	pts := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 30, Y: 180},
	}
	for i := range pts {
		pts[i].Z = want.Z(pts[i].X, pts[i].Y)
	}

	got, err := FitPlane(pts)
	require.NoError(t, err)
	assert.InDelta(t, want.A, got.A, 1e-9)
	assert.InDelta(t, want.B, got.B, 1e-9)
	assert.InDelta(t, want.D, got.D, 1e-9)
}

func TestFitPlane_LeastSquares(t *testing.T) {
	// symmetric noise around z = 1 cancels out
	pts := []Point{
		{X: 0, Y: 0, Z: 1.1},
		{X: 10, Y: 0, Z: 0.9},
		{X: 0, Y: 10, Z: 0.9},
		{X: 10, Y: 10, Z: 1.1},
	}
	got, err := FitPlane(pts)
	require.NoError(t, err)
	assert.InDelta(t, 0, got.A, 1e-9)
	assert.InDelta(t, 0, got.B, 1e-9)
	assert.InDelta(t, 1, got.D, 1e-9)
}

func TestFitPlane_Degenerate(t *testing.T) {
	_, err := FitPlane([]Point{{X: 0, Y: 0, Z: 1}, {X: 10, Y: 10, Z: 2}})
	assert.True(t, errors.Is(err, ErrDegenerateFit))

	_, err = FitPlane([]Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}, {X: 20, Y: 20}})
	assert.True(t, errors.Is(err, ErrDegenerateFit), "collinear")

	_, err = FitPlane([]Point{{X: 0, Y: 3}, {X: 5, Y: 3}, {X: 10, Y: 3}})
	assert.True(t, errors.Is(err, ErrDegenerateFit), "constant y")

	_, err = FitPlane(nil)
	assert.Error(t, err)
}

func TestPlaneFit_Incremental(t *testing.T) {
	var f PlaneFit
	f.Add(Point{X: 0, Y: 0, Z: 2})
	f.Add(Point{X: 1, Y: 0, Z: 3})
	_, err := f.Solve()
	assert.Error(t, err)

	f.Add(Point{X: 0, Y: 1, Z: 4})
	assert.Equal(t, 3, f.Len())
	p, err := f.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 1, p.A, 1e-9)
	assert.InDelta(t, 2, p.B, 1e-9)
	assert.InDelta(t, 2, p.D, 1e-9)

	f.Reset()
	assert.Equal(t, 0, f.Len())
}

func TestPlaneThrough(t *testing.T) {
	p, err := PlaneThrough(Point{0, 0, 0}, Point{10, 0, 0}, Point{5, 5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p.Z(2.5, 2.5), 1e-9)

	_, err = PlaneThrough(Point{0, 0, 0}, Point{1, 1, 0}, Point{2, 2, 1})
	assert.Error(t, err)
}
