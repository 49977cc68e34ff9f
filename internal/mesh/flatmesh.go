package mesh

// FlatMesh is the flat buffer triple exchanged across the API boundary.
//
// Vertices and Normals hold 3*VertexCount floats laid out x0 y0 z0 x1 ...
// (a column-major 3xVertexCount matrix). Triangles holds 3*TriangleCount
// vertex indices. Normals may be absent.
//
// A FlatMesh is either borrowed (built by Borrow over caller memory, never
// freed here) or owned (built by Allocate, released exactly once through the
// Allocator that produced it). A FlatMesh is not safe for concurrent use.
type FlatMesh struct {
	Vertices  Buffer[float32]
	Normals   Buffer[float32]
	Triangles Buffer[int32]

	VertexCount   int
	TriangleCount int

	alloc    Allocator
	released bool
}

// Borrow wraps caller-owned buffers without copying. Nil slices become
// absent buffers.
func Borrow(vertices, normals []float32, triangles []int32, vertexCount, triangleCount int) *FlatMesh {
	return &FlatMesh{
		Vertices:      BorrowBuffer(vertices),
		Normals:       BorrowBuffer(normals),
		Triangles:     BorrowBuffer(triangles),
		VertexCount:   vertexCount,
		TriangleCount: triangleCount,
	}
}

// Allocate creates an owned mesh with exactly 3*vertexCount position slots
// and 3*triangleCount index slots. Normals are absent. A nil alloc uses
// DefaultAllocator.
func Allocate(alloc Allocator, vertexCount, triangleCount int) (*FlatMesh, error) {
	if vertexCount < 0 || triangleCount < 0 {
		return nil, Errorf(PhaseBuild, KindProtocol,
			"negative mesh size %d vertices, %d triangles", vertexCount, triangleCount)
	}
	if alloc == nil {
		alloc = DefaultAllocator
	}
	return &FlatMesh{
		Vertices:      ownBuffer(alloc.AllocFloats(3 * vertexCount)),
		Triangles:     ownBuffer(alloc.AllocIndices(3 * triangleCount)),
		VertexCount:   vertexCount,
		TriangleCount: triangleCount,
		alloc:         alloc,
	}, nil
}

// Owned reports whether this layer is responsible for releasing the mesh.
func (m *FlatMesh) Owned() bool { return m.alloc != nil }

// Released reports whether Release has already freed the buffers.
func (m *FlatMesh) Released() bool { return m.released }

// HasNormals reports whether the normals buffer is present.
func (m *FlatMesh) HasNormals() bool { return !m.Normals.IsAbsent() }

// Position returns vertex i.
func (m *FlatMesh) Position(i int) [3]float32 {
	v := m.Vertices.data[i*3 : i*3+3]
	return [3]float32{v[0], v[1], v[2]}
}

// Triangle returns the vertex indices of triangle i.
func (m *FlatMesh) Triangle(i int) [3]int32 {
	t := m.Triangles.data[i*3 : i*3+3]
	return [3]int32{t[0], t[1], t[2]}
}

// Validate checks that the declared counts describe the buffers exactly and
// that every triangle index names an existing vertex.
func (m *FlatMesh) Validate() error {
	if m == nil {
		return Errorf(PhaseValidate, KindInvalidBufferLayout, "mesh is nil")
	}
	if m.VertexCount <= 0 {
		return Errorf(PhaseValidate, KindInvalidBufferLayout, "vertex count must be positive, got %d", m.VertexCount)
	}
	if m.TriangleCount <= 0 {
		return Errorf(PhaseValidate, KindInvalidBufferLayout, "triangle count must be positive, got %d", m.TriangleCount)
	}
	if m.Vertices.IsAbsent() {
		return Errorf(PhaseValidate, KindInvalidBufferLayout, "vertex buffer is absent")
	}
	if m.Triangles.IsAbsent() {
		return Errorf(PhaseValidate, KindInvalidBufferLayout, "triangle buffer is absent")
	}
	if got, want := m.Vertices.Len(), 3*m.VertexCount; got != want {
		return &Error{Phase: PhaseValidate, Kind: KindInvalidBufferLayout,
			Detail: "vertex buffer length does not match vertex count", Want: want, Got: got}
	}
	if m.HasNormals() {
		if got, want := m.Normals.Len(), 3*m.VertexCount; got != want {
			return &Error{Phase: PhaseValidate, Kind: KindInvalidBufferLayout,
				Detail: "normal buffer length does not match vertex count", Want: want, Got: got}
		}
	}
	if got, want := m.Triangles.Len(), 3*m.TriangleCount; got != want {
		return &Error{Phase: PhaseValidate, Kind: KindInvalidBufferLayout,
			Detail: "triangle buffer length does not match triangle count", Want: want, Got: got}
	}
	for i, idx := range m.Triangles.data {
		if idx < 0 || int(idx) >= m.VertexCount {
			return Errorf(PhaseValidate, KindIndexOutOfRange,
				"triangle %d references vertex %d of %d", i/3, idx, m.VertexCount)
		}
	}
	return nil
}

// Release frees every present owned buffer exactly once. Releasing a nil
// mesh is a no-op. A borrowed mesh returns ErrNotOwned and a second release
// returns ErrDoubleRelease; neither frees anything.
func (m *FlatMesh) Release() error {
	if m == nil {
		return nil
	}
	if m.alloc == nil {
		return Errorf(PhaseRelease, KindNotOwned, "mesh buffers belong to the caller")
	}
	if m.released {
		return Errorf(PhaseRelease, KindDoubleRelease, "mesh already released")
	}

	if !m.Vertices.IsAbsent() {
		m.alloc.FreeFloats(m.Vertices.data)
	}
	if !m.Normals.IsAbsent() {
		m.alloc.FreeFloats(m.Normals.data)
	}
	if !m.Triangles.IsAbsent() {
		m.alloc.FreeIndices(m.Triangles.data)
	}
	m.Vertices = Buffer[float32]{}
	m.Normals = Buffer[float32]{}
	m.Triangles = Buffer[int32]{}
	m.released = true
	return nil
}
