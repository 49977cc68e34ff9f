package engine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointMatrix is a read-only column-major 3xN view over a flat float32
// slice (x0 y0 z0 x1 y1 z1 ...). It implements mat.Matrix without copying.
// A matrix with zero columns is empty; engines must accept it in place of
// missing normals.
type PointMatrix struct {
	data []float32
	n    int
}

var _ mat.Matrix = PointMatrix{}

// MapPoints maps data as a 3xn matrix. len(data) must equal 3*n.
func MapPoints(data []float32, n int) (PointMatrix, error) {
	if n < 0 || len(data) != 3*n {
		return PointMatrix{}, fmt.Errorf("point matrix: %d values cannot form 3x%d", len(data), n)
	}
	return PointMatrix{data: data, n: n}, nil
}

// Dims returns 3 rows and one column per point.
func (m PointMatrix) Dims() (r, c int) { return 3, m.n }

// At returns component i of point j.
func (m PointMatrix) At(i, j int) float64 {
	if i < 0 || i >= 3 {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= m.n {
		panic(mat.ErrColAccess)
	}
	return float64(m.data[j*3+i])
}

// T returns the implicit transpose.
func (m PointMatrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// Cols returns the number of points.
func (m PointMatrix) Cols() int { return m.n }

// IsEmpty reports whether the matrix has no columns.
func (m PointMatrix) IsEmpty() bool { return m.n == 0 }

// Vec returns point j as a vector.
func (m PointMatrix) Vec(j int) r3.Vec {
	p := m.data[j*3 : j*3+3]
	return r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// IndexMatrix is a read-only column-major 3xT view over triangle indices.
type IndexMatrix struct {
	data []uint32
	n    int
}

// MapIndices maps data as a 3xn index matrix. len(data) must equal 3*n.
func MapIndices(data []uint32, n int) (IndexMatrix, error) {
	if n < 0 || len(data) != 3*n {
		return IndexMatrix{}, fmt.Errorf("index matrix: %d values cannot form 3x%d", len(data), n)
	}
	return IndexMatrix{data: data, n: n}, nil
}

// Dims returns 3 rows and one column per triangle.
func (m IndexMatrix) Dims() (r, c int) { return 3, m.n }

// At returns corner i of triangle j.
func (m IndexMatrix) At(i, j int) uint32 { return m.data[j*3+i] }

// Face returns the three corners of triangle j.
func (m IndexMatrix) Face(j int) [3]uint32 {
	f := m.data[j*3 : j*3+3]
	return [3]uint32{f[0], f[1], f[2]}
}

// Cols returns the number of triangles.
func (m IndexMatrix) Cols() int { return m.n }

// IsEmpty reports whether the matrix has no columns.
func (m IndexMatrix) IsEmpty() bool { return m.n == 0 }

// ColorMatrix is a 3xN matrix of 16-bit per-channel vertex colours.
// Callers of this module never supply colour, so it is normally empty.
type ColorMatrix struct {
	data []uint16
	n    int
}

// MapColors maps data as a 3xn colour matrix. len(data) must equal 3*n.
func MapColors(data []uint16, n int) (ColorMatrix, error) {
	if n < 0 || len(data) != 3*n {
		return ColorMatrix{}, fmt.Errorf("color matrix: %d values cannot form 3x%d", len(data), n)
	}
	return ColorMatrix{data: data, n: n}, nil
}

// Cols returns the number of colours.
func (m ColorMatrix) Cols() int { return m.n }

// IsEmpty reports whether the matrix has no columns.
func (m ColorMatrix) IsEmpty() bool { return m.n == 0 }

// Vec returns colour j with channels scaled to [0,1].
func (m ColorMatrix) Vec(j int) r3.Vec {
	c := m.data[j*3 : j*3+3]
	return r3.Vec{X: float64(c[0]) / 65535, Y: float64(c[1]) / 65535, Z: float64(c[2]) / 65535}
}
