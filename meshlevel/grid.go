package meshlevel

import (
	"math"

	"github.com/pkg/errors"
)

// Grid is a rectangular height map sampled at uniform spacing and read
// with bilinear interpolation. Z is indexed [x][y].
type Grid struct {
	startX, startY     float64
	spacingX, spacingY float64
	nx, ny             int
	z                  [][]float64
}

// NewGrid copies z, which must have at least two columns and two rows of
// equal length.
func NewGrid(startX, startY, spacingX, spacingY float64, z [][]float64) (*Grid, error) {
	if spacingX <= 0 || spacingY <= 0 {
		return nil, errors.New("meshlevel: grid spacing must be positive")
	}
	nx, ny, err := gridSize(z)
	if err != nil {
		return nil, err
	}
	return &Grid{
		startX: startX, startY: startY,
		spacingX: spacingX, spacingY: spacingY,
		nx: nx, ny: ny,
		z: copyGrid(z),
	}, nil
}

func gridSize(z [][]float64) (nx, ny int, err error) {
	nx = len(z)
	if nx < 2 {
		return 0, 0, errors.Errorf("meshlevel: need at least 2 columns, got %d", nx)
	}
	ny = len(z[0])
	if ny < 2 {
		return 0, 0, errors.Errorf("meshlevel: need at least 2 rows, got %d", ny)
	}
	for i, col := range z {
		if len(col) != ny {
			return 0, 0, errors.Errorf("meshlevel: column %d has %d rows, want %d", i, len(col), ny)
		}
	}
	return nx, ny, nil
}

func copyGrid(z [][]float64) [][]float64 {
	out := make([][]float64, len(z))
	for i := range z {
		out[i] = append([]float64(nil), z[i]...)
	}
	return out
}

// Size returns the number of samples along X and Y.
func (g *Grid) Size() (nx, ny int) { return g.nx, g.ny }

// Values returns a copy of the samples.
func (g *Grid) Values() [][]float64 { return copyGrid(g.z) }

// cell maps pos to a clamped fractional index and splits it into the
// lower sample index and the weight of the upper one.
func cell(pos, start, spacing float64, n int) (int, float64) {
	f := (pos - start) / spacing
	if !(f > 0) {
		return 0, 0
	}
	if f >= float64(n-1) {
		return n - 2, 1
	}
	i := int(math.Floor(f))
	if i > n-2 {
		i = n - 2
	}
	return i, f - float64(i)
}

func lerp(a, b, t float64) float64 { return (1-t)*a + t*b }

// ZCorrection interpolates the four samples around x,y. Positions off
// the grid use the nearest edge.
func (g *Grid) ZCorrection(x, y float64) float64 {
	ix, tx := cell(x, g.startX, g.spacingX, g.nx)
	iy, ty := cell(y, g.startY, g.spacingY, g.ny)

	z0 := lerp(g.z[ix][iy], g.z[ix+1][iy], tx)
	z1 := lerp(g.z[ix][iy+1], g.z[ix+1][iy+1], tx)
	return lerp(z0, z1, ty)
}
