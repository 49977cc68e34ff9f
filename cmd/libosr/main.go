// Command libosr builds the C shared library that exposes the
// reconstruction pipeline to native callers:
//
//	go build -buildmode=c-shared -o libosr.so ./cmd/libosr
//
// Output buffers are allocated with malloc and must be returned through
// free_mesh. Functions return 0 on success and a negative code on failure;
// osr_last_error describes the most recent failure. Set OSR_DEBUG to enable
// logging on stderr.
package main

/*
#include <stdlib.h>
#include <string.h>

typedef struct Mesh {
	float* Vertices;
	float* Normals;
	int* Triangles;

	int VertexCount;
	int TriangleCount;
} Mesh;

typedef struct Parameters {
	float Scale;      // > 0, -1 for default
	float Smoothness; // [0, 1), -1 for default
} Parameters;
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
)

var osr = newBridge(cAllocator{})

func init() {
	if os.Getenv("OSR_DEBUG") == "" {
		monitoring.SetLogger(nil)
	}
}

// cAllocator hands out malloc'd memory so native callers can hold output
// buffers past the call. C.malloc aborts rather than returning NULL.
type cAllocator struct{}

func (cAllocator) AllocFloats(n int) []float32 {
	if n == 0 {
		return nil
	}
	p := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.float(0))))
	return unsafe.Slice((*float32)(p), n)
}

func (cAllocator) AllocIndices(n int) []int32 {
	if n == 0 {
		return nil
	}
	p := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.int(0))))
	return unsafe.Slice((*int32)(p), n)
}

func (cAllocator) FreeFloats(buf []float32) {
	if len(buf) > 0 {
		C.free(unsafe.Pointer(&buf[0]))
	}
}

func (cAllocator) FreeIndices(buf []int32) {
	if len(buf) > 0 {
		C.free(unsafe.Pointer(&buf[0]))
	}
}

// borrowMesh views the caller's buffers without copying. Pointers are only
// sliced when their count is positive; Validate reports the rest.
func borrowMesh(m *C.Mesh) *mesh.FlatMesh {
	vc, tc := int(m.VertexCount), int(m.TriangleCount)
	var vertices, normals []float32
	var triangles []int32
	if vc > 0 && m.Vertices != nil {
		vertices = unsafe.Slice((*float32)(unsafe.Pointer(m.Vertices)), 3*vc)
	}
	if vc > 0 && m.Normals != nil {
		normals = unsafe.Slice((*float32)(unsafe.Pointer(m.Normals)), 3*vc)
	}
	if tc > 0 && m.Triangles != nil {
		triangles = unsafe.Slice((*int32)(unsafe.Pointer(m.Triangles)), 3*tc)
	}
	return mesh.Borrow(vertices, normals, triangles, vc, tc)
}

func fail(err error) C.int {
	return C.int(osr.fail(err))
}

//export process_mesh
func process_mesh(input *C.Mesh, parameters *C.Parameters, output *C.Mesh) C.int {
	if input == nil || output == nil {
		return fail(mesh.Errorf(mesh.PhaseValidate, mesh.KindInvalidBufferLayout, "input and output must not be NULL"))
	}
	*output = C.Mesh{}

	params := config.EmptyParameters()
	if parameters != nil {
		params = config.FromSentinels(float32(parameters.Scale), float32(parameters.Smoothness))
	}

	_, out, err := osr.processFlat(borrowMesh(input), params)
	if err != nil {
		return fail(err)
	}

	if d := out.Vertices.Data(); len(d) > 0 {
		output.Vertices = (*C.float)(unsafe.Pointer(&d[0]))
	}
	if d := out.Triangles.Data(); len(d) > 0 {
		output.Triangles = (*C.int)(unsafe.Pointer(&d[0]))
	}
	output.VertexCount = C.int(out.VertexCount)
	output.TriangleCount = C.int(out.TriangleCount)
	return 0
}

//export free_mesh
func free_mesh(m *C.Mesh) C.int {
	if m == nil {
		return 0
	}
	handle := uintptr(unsafe.Pointer(m.Vertices))
	if handle == 0 {
		handle = uintptr(unsafe.Pointer(m.Triangles))
	}
	if err := osr.freeHandle(handle); err != nil {
		return fail(err)
	}
	*m = C.Mesh{}
	return 0
}

//export osr_last_error
func osr_last_error(buf *C.char, n C.int) C.int {
	msg := osr.lastErr.get()
	if buf != nil && n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(n))
		copied := copy(dst[:len(dst)-1], msg)
		dst[copied] = 0
	}
	return C.int(len(msg))
}

func main() {}
