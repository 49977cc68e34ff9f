package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

// fan is a unit square with one interior vertex joined to every corner.
func fan(center r3.Vec) ([]r3.Vec, [][3]uint32) {
	positions := []r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, center}
	faces := [][3]uint32{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}}
	return positions, faces
}

func TestEstimateNormalsFlat(t *testing.T) {
	positions, faces := fan(r3.Vec{X: 0.5, Y: 0.5})
	for _, n := range estimateNormals(positions, faces) {
		assert.InDelta(t, 1, n.Z, 1e-12)
	}
}

func TestEstimateNormalsUnreferenced(t *testing.T) {
	positions := []r3.Vec{{}, {X: 1}, {Y: 1}, {X: 5, Y: 5}}
	normals := estimateNormals(positions, [][3]uint32{{0, 1, 2}})
	assert.Equal(t, r3.Vec{}, normals[3])
}

func TestSmoothMovesInteriorOnly(t *testing.T) {
	positions, faces := fan(r3.Vec{X: 0.6, Y: 0.5})
	normals := make([]r3.Vec, len(positions))
	for i := range normals {
		normals[i] = r3.Vec{Z: 1}
	}

	smooth(positions, normals, faces, 0.5, 3)

	assert.Equal(t, r3.Vec{X: 1, Y: 1}, positions[2], "boundary vertex is fixed")
	assert.InDelta(t, 0.5125, positions[4].X, 1e-12)
	assert.InDelta(t, 0.5, positions[4].Y, 1e-12)
}

func TestSmoothIsTangential(t *testing.T) {
	positions, faces := fan(r3.Vec{X: 0.5, Y: 0.5, Z: 0.2})
	normals := make([]r3.Vec, len(positions))
	for i := range normals {
		normals[i] = r3.Vec{Z: 1}
	}

	smooth(positions, normals, faces, 0.5, 3)
	assert.InDelta(t, 0.2, positions[4].Z, 1e-12)
}

func TestSmoothZeroWeightIsIdentity(t *testing.T) {
	positions, faces := fan(r3.Vec{X: 0.9, Y: 0.1})
	before := append([]r3.Vec(nil), positions...)
	smooth(positions, make([]r3.Vec, len(positions)), faces, 0, 3)
	assert.Equal(t, before, positions)
}

func TestClusterDropsDegenerateAndDuplicateFaces(t *testing.T) {
	positions := []r3.Vec{{}, {X: 0.01}, {X: 1}, {Y: 1}}
	faces := [][3]uint32{
		{0, 1, 2}, // 0 and 1 share a cell
		{0, 2, 3},
		{1, 2, 3}, // same cells as the face above
	}
	m := cluster(positions, nil, faces, 0.25)

	assert.Len(t, m.faces, 1)
	assert.Len(t, m.positions, 3)
	assert.InDelta(t, 0.005, m.positions[0].X, 1e-12, "merged vertex is the cell mean")
}

func TestClusterAveragesColors(t *testing.T) {
	positions := []r3.Vec{{}, {X: 0.01}, {X: 1}, {Y: 1}}
	colors := []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {}}
	m := cluster(positions, colors, [][3]uint32{{0, 2, 3}}, 0.25)

	assert.Equal(t, r3.Vec{X: 0.5, Y: 0.5}, m.colors[0])
}
