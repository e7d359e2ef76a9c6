package meshlevel

import (
	"math"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// UBLMesh is a uniform mesh spanning [minX,maxX]x[minY,maxY]. Unprobed
// points are NaN and read as zero. Unlike Grid, positions off the mesh
// are extrapolated linearly from the nearest cell.
type UBLMesh struct {
	minX, minY         float64
	spacingX, spacingY float64
	nx, ny             int
	z                  [][]float64
}

// NewUBLMesh copies z, indexed [x][y].
func NewUBLMesh(minX, minY, maxX, maxY float64, z [][]float64) (*UBLMesh, error) {
	nx, ny, err := gridSize(z)
	if err != nil {
		return nil, err
	}
	if maxX <= minX || maxY <= minY {
		return nil, errors.New("meshlevel: empty mesh bounds")
	}
	return &UBLMesh{
		minX: minX, minY: minY,
		spacingX: (maxX - minX) / float64(nx-1),
		spacingY: (maxY - minY) / float64(ny-1),
		nx:       nx, ny: ny,
		z: copyGrid(z),
	}, nil
}

func (m *UBLMesh) Size() (nx, ny int)  { return m.nx, m.ny }
func (m *UBLMesh) Values() [][]float64 { return copyGrid(m.z) }

func (m *UBLMesh) IndexToX(i int) float64 { return m.minX + float64(i)*m.spacingX }
func (m *UBLMesh) IndexToY(i int) float64 { return m.minY + float64(i)*m.spacingY }

// CellIndexX returns the cell containing x, clamped to a valid cell.
func (m *UBLMesh) CellIndexX(x float64) int {
	return clampCell((x-m.minX)/m.spacingX, m.nx)
}

// CellIndexY returns the cell containing y, clamped to a valid cell.
func (m *UBLMesh) CellIndexY(y float64) int {
	return clampCell((y-m.minY)/m.spacingY, m.ny)
}

func clampCell(f float64, n int) int {
	if !(f > 0) {
		return 0
	}
	if f >= float64(n-2) {
		return n - 2
	}
	return int(f)
}

func (m *UBLMesh) at(ix, iy int) float64 {
	z := m.z[ix][iy]
	if math.IsNaN(z) {
		return 0
	}
	return z
}

// ZCorrection interpolates within the cell around x,y.
func (m *UBLMesh) ZCorrection(x, y float64) float64 {
	cx, cy := m.CellIndexX(x), m.CellIndexY(y)
	tx := (x - m.IndexToX(cx)) / m.spacingX
	ty := (y - m.IndexToY(cy)) / m.spacingY

	z0 := lerp(m.at(cx, cy), m.at(cx+1, cy), tx)
	z1 := lerp(m.at(cx, cy+1), m.at(cx+1, cy+1), tx)
	z := lerp(z0, z1, ty)
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}

// Tilt fits a plane to the difference between fresh probe samples and the
// mesh and returns a copy of the mesh with that plane added to every
// probed point. The receiver is not modified.
func (m *UBLMesh) Tilt(samples []coord.Point) (*UBLMesh, error) {
	var fit coord.PlaneFit
	for _, s := range samples {
		fit.Add(coord.Point{X: s.X, Y: s.Y, Z: s.Z - m.ZCorrection(s.X, s.Y)})
	}
	pl, err := fit.Solve()
	if err != nil {
		return nil, errors.Wrap(err, "meshlevel: tilt")
	}

	out := *m
	out.z = copyGrid(m.z)
	for ix := range out.z {
		x := m.IndexToX(ix)
		for iy, z := range out.z[ix] {
			if math.IsNaN(z) {
				continue
			}
			out.z[ix][iy] = z + pl.Z(x, m.IndexToY(iy))
		}
	}
	return &out, nil
}
