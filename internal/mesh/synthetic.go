package mesh

// Plane builds a borrowed unit square in the z=0 plane split into n x n
// cells of two triangles each, with +Z normals. n < 1 is treated as 1, which
// yields the unit quad: 4 vertices, 2 triangles.
func Plane(n int) *FlatMesh {
	if n < 1 {
		n = 1
	}
	side := n + 1
	vertices := make([]float32, 0, 3*side*side)
	normals := make([]float32, 0, 3*side*side)
	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			vertices = append(vertices, float32(i)/float32(n), float32(j)/float32(n), 0)
			normals = append(normals, 0, 0, 1)
		}
	}

	triangles := make([]int32, 0, 6*n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a := int32(j*side + i)
			b := a + 1
			c := a + int32(side) + 1
			d := a + int32(side)
			triangles = append(triangles, a, b, c, a, c, d)
		}
	}
	return Borrow(vertices, normals, triangles, side*side, 2*n*n)
}
