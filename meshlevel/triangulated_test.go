package meshlevel

import (
	"testing"

	"github.com/mastercactapus/motioncore/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probes indicate a rise of 30mm over 100mm, or .3mm Z for every 1mm X
var risingProbes = []coord.Point{
	{X: -700, Y: -450, Z: -80},
	{X: -700, Y: -550, Z: -80},

	{X: -600, Y: -450, Z: -50},
	{X: -600, Y: -550, Z: -50},
}

func TestTriangulatedMesh(t *testing.T) {
	m, err := NewTriangulatedMesh(risingProbes)
	require.NoError(t, err)
	assert.Len(t, m.Triangles(), 2)

	assert.InDelta(t, -65, m.ZCorrection(-650, -500), 1e-9)
	assert.InDelta(t, -80, m.ZCorrection(-700, -450), 1e-9)
	assert.InDelta(t, -50, m.ZCorrection(-600, -520), 1e-9)
}

func TestTriangulatedMesh_OutsideHull(t *testing.T) {
	m, err := NewTriangulatedMesh(risingProbes)
	require.NoError(t, err)

	assert.InDelta(t, -95, m.ZCorrection(-750, -500), 1e-9)
	assert.InDelta(t, -35, m.ZCorrection(-550, -300), 1e-9)
}

func TestNewTriangulatedMesh_Invalid(t *testing.T) {
	_, err := NewTriangulatedMesh(risingProbes[:2])
	assert.Error(t, err)
}

func TestRelativeTo(t *testing.T) {
	rel := RelativeTo(-65, risingProbes)
	assert.Equal(t, -15.0, rel[0].Z)
	assert.Equal(t, 15.0, rel[3].Z)
	assert.Equal(t, -80.0, risingProbes[0].Z)
}
