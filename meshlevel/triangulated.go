package meshlevel

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/mastercactapus/motioncore/coord"
	"github.com/pkg/errors"
)

// TriangulatedMesh interpolates an arbitrary cloud of probe points over
// its Delaunay triangulation.
type TriangulatedMesh struct {
	minX, minY, maxX, maxY float64
	triangles              []coord.Triangle
}

// NewTriangulatedMesh triangulates points; Z of each point is the
// measured bed height.
func NewTriangulatedMesh(points []coord.Point) (*TriangulatedMesh, error) {
	if len(points) < 3 {
		return nil, errors.New("meshlevel: need at least 3 points to create a mesh")
	}

	flat := make([]delaunay.Point, len(points))
	byXY := make(map[delaunay.Point]coord.Point, len(points))

	mesh := &TriangulatedMesh{
		minX: points[0].X,
		minY: points[0].Y,
		maxX: points[0].X,
		maxY: points[0].Y,
	}
	for i, p := range points {
		mesh.minX = math.Min(mesh.minX, p.X)
		mesh.minY = math.Min(mesh.minY, p.Y)
		mesh.maxX = math.Max(mesh.maxX, p.X)
		mesh.maxY = math.Max(mesh.maxY, p.Y)

		d := delaunay.Point{X: p.X, Y: p.Y}
		byXY[d] = p
		flat[i] = d
	}
	mesh.minX -= coord.Epsilon
	mesh.minY -= coord.Epsilon
	mesh.maxX += coord.Epsilon
	mesh.maxY += coord.Epsilon

	tri, err := delaunay.Triangulate(flat)
	if err != nil {
		return nil, errors.Wrap(err, "meshlevel: triangulate")
	}
	if len(tri.Triangles) == 0 {
		return nil, errors.New("meshlevel: probe points are collinear")
	}

	mesh.triangles = make([]coord.Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i < len(tri.Triangles); i += 3 {
		mesh.triangles = append(mesh.triangles, coord.Triangle{
			A: byXY[tri.Points[tri.Triangles[i]]],
			B: byXY[tri.Points[tri.Triangles[i+1]]],
			C: byXY[tri.Points[tri.Triangles[i+2]]],
		})
	}

	return mesh, nil
}

// Triangles returns the faces of the mesh.
func (m *TriangulatedMesh) Triangles() []coord.Triangle {
	return append([]coord.Triangle(nil), m.triangles...)
}

// ZCorrection returns the height of the face containing x,y, or the
// extended plane of the nearest face when x,y is outside the hull.
func (m *TriangulatedMesh) ZCorrection(x, y float64) float64 {
	inBox := x >= m.minX && x <= m.maxX && y >= m.minY && y <= m.maxY
	if inBox {
		for _, t := range m.triangles {
			if t.ContainsXY(x, y) {
				return t.Z(x, y)
			}
		}
	}

	nearest := m.triangles[0]
	best := math.Inf(1)
	for _, t := range m.triangles {
		if d := t.DistanceSqXY(x, y); d < best {
			best, nearest = d, t
		}
	}
	return nearest.Z(x, y)
}

// RelativeTo returns a copy of points with z subtracted from each height,
// turning raw probe readings into corrections against a reference.
func RelativeTo(z float64, points []coord.Point) []coord.Point {
	out := make([]coord.Point, len(points))
	for i, p := range points {
		p.Z -= z
		out[i] = p
	}
	return out
}
