// Package builder materialises an engine's extracted mesh into an owned
// FlatMesh.
//
// The engine drives a Builder through the engine.MeshVisitor protocol:
// Begin(vertices, faces) once, exactly `vertices` AddVertex calls, AddFace
// batches totalling 3*faces indices, then End. Every deviation is returned
// as a *mesh.Error; nothing is written out of bounds. The first deviation
// after Begin is also kept and reported again by End and Mesh, so engines
// that ignore visitor results cannot hand back a mesh built from a
// rejected stream.
package builder

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

type state uint8

const (
	stateIdle state = iota
	stateBuilding
	stateEnded
	stateTaken
)

// Builder implements engine.MeshVisitor. It is not safe for concurrent use;
// engines drive it synchronously.
type Builder struct {
	alloc mesh.Allocator
	out   *mesh.FlatMesh
	state state

	// write cursors, in scalar slots
	nextVertex int
	nextFace   int

	// first failure since Begin
	err error
}

var _ engine.MeshVisitor = (*Builder)(nil)

// New creates a Builder that allocates its output with alloc.
// A nil alloc uses mesh.DefaultAllocator.
func New(alloc mesh.Allocator) *Builder {
	if alloc == nil {
		alloc = mesh.DefaultAllocator
	}
	return &Builder{alloc: alloc}
}

// Begin allocates the output for exactly vertices positions and faces
// triangles and resets the cursors. It may be called once.
func (b *Builder) Begin(vertices, faces int) error {
	if b.state != stateIdle {
		return b.fail(mesh.Errorf(mesh.PhaseBuild, mesh.KindProtocol, "begin called twice"))
	}
	out, err := mesh.Allocate(b.alloc, vertices, faces)
	if err != nil {
		return err
	}
	b.out = out
	b.nextVertex = 0
	b.nextFace = 0
	b.state = stateBuilding
	return nil
}

// AddVertex writes position at the vertex cursor. color is accepted and
// discarded.
func (b *Builder) AddVertex(position, _ r3.Vec) error {
	if err := b.requireBuilding("add vertex"); err != nil {
		return b.fail(err)
	}
	buf := b.out.Vertices.Data()
	if b.nextVertex+3 > len(buf) {
		return b.fail(&mesh.Error{Phase: mesh.PhaseBuild, Kind: mesh.KindVertexOverflow,
			Detail: "more vertices than declared at begin", Want: len(buf), Got: b.nextVertex + 3})
	}
	buf[b.nextVertex+0] = float32(position.X)
	buf[b.nextVertex+1] = float32(position.Y)
	buf[b.nextVertex+2] = float32(position.Z)
	b.nextVertex += 3
	return nil
}

// AddFace appends indices at the face cursor. The whole batch is checked
// before anything is written.
func (b *Builder) AddFace(indices []uint32) error {
	if err := b.requireBuilding("add face"); err != nil {
		return b.fail(err)
	}
	buf := b.out.Triangles.Data()
	if b.nextFace+len(indices) > len(buf) {
		return b.fail(&mesh.Error{Phase: mesh.PhaseBuild, Kind: mesh.KindFaceOverflow,
			Detail: "more face indices than declared at begin", Want: len(buf), Got: b.nextFace + len(indices)})
	}
	for _, idx := range indices {
		if int64(idx) >= int64(b.out.VertexCount) {
			return b.fail(mesh.Errorf(mesh.PhaseBuild, mesh.KindIndexOutOfRange,
				"face references vertex %d of %d", idx, b.out.VertexCount))
		}
	}
	for i, idx := range indices {
		buf[b.nextFace+i] = int32(idx)
	}
	b.nextFace += len(indices)
	return nil
}

// End checks that the cursors reached exactly the sizes declared at Begin.
// It returns the first earlier failure, if any, instead.
func (b *Builder) End() error {
	if err := b.requireBuilding("end"); err != nil {
		return err
	}
	if b.err != nil {
		return b.err
	}
	if want := b.out.Vertices.Len(); b.nextVertex != want {
		return b.fail(&mesh.Error{Phase: mesh.PhaseBuild, Kind: mesh.KindIncompleteMesh,
			Detail: "vertex stream ended early", Want: want, Got: b.nextVertex})
	}
	if want := b.out.Triangles.Len(); b.nextFace != want {
		return b.fail(&mesh.Error{Phase: mesh.PhaseBuild, Kind: mesh.KindIncompleteMesh,
			Detail: "face stream ended early", Want: want, Got: b.nextFace})
	}
	b.state = stateEnded
	return nil
}

// Mesh hands the completed output to the caller, who becomes responsible
// for releasing it. It succeeds once, after a successful End, and only when
// no visitor call failed since Begin.
func (b *Builder) Mesh() (*mesh.FlatMesh, error) {
	if b.err != nil && b.state != stateTaken {
		return nil, b.err
	}
	switch b.state {
	case stateEnded:
		out := b.out
		b.out = nil
		b.state = stateTaken
		return out, nil
	case stateTaken:
		return nil, mesh.Errorf(mesh.PhaseBuild, mesh.KindProtocol, "mesh already taken")
	default:
		return nil, mesh.Errorf(mesh.PhaseBuild, mesh.KindProtocol, "mesh requested before end")
	}
}

// Discard releases any output the builder still owns. It is safe to call
// at any point, including after Mesh.
func (b *Builder) Discard() {
	if b.out != nil {
		_ = b.out.Release()
		b.out = nil
		b.state = stateTaken
	}
}

// Err returns the first failure recorded since Begin.
func (b *Builder) Err() error {
	return b.err
}

// fail records err when output is allocated and no earlier failure is
// kept, then returns it.
func (b *Builder) fail(err error) error {
	if b.err == nil && (b.state == stateBuilding || b.state == stateEnded) {
		b.err = err
	}
	return err
}

// Cursors returns the vertex and face write offsets in scalar slots.
func (b *Builder) Cursors() (vertex, face int) {
	return b.nextVertex, b.nextFace
}

func (b *Builder) requireBuilding(op string) error {
	switch b.state {
	case stateIdle:
		return mesh.Errorf(mesh.PhaseBuild, mesh.KindProtocol, "%s before begin", op)
	case stateBuilding:
		return nil
	default:
		return mesh.Errorf(mesh.PhaseBuild, mesh.KindProtocol, "%s after end", op)
	}
}
