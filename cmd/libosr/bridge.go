package main

import (
	"context"
	"unsafe"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine/reference"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/pipeline"
)

// bridge is the Go side of the exported functions. The cgo wrappers only
// translate between C structs and FlatMesh values.
type bridge struct {
	processor *pipeline.Processor
	live      *mesh.Registry
	lastErr   lastError
}

func newBridge(alloc mesh.Allocator) *bridge {
	return &bridge{
		processor: pipeline.NewProcessor(reference.New(), pipeline.WithAllocator(alloc)),
		live:      mesh.NewRegistry(),
	}
}

// fail records err for osr_last_error and returns its code.
func (b *bridge) fail(err error) int {
	b.lastErr.set(err)
	return errorCode(err)
}

// processFlat reconstructs input and registers the output under the handle
// free_mesh will later receive. An empty output has handle 0 and is not
// registered; it owns no memory.
func (b *bridge) processFlat(input *mesh.FlatMesh, params *config.Parameters) (uintptr, *mesh.FlatMesh, error) {
	out, err := b.processor.Process(context.Background(), input, params)
	if err != nil {
		return 0, nil, err
	}
	handle := outputHandle(out)
	if handle == 0 {
		return 0, out, nil
	}
	if err := b.live.Register(handle, out); err != nil {
		_ = out.Release()
		return 0, nil, err
	}
	return handle, out, nil
}

// freeHandle releases the output registered under handle. A zero handle is
// an empty mesh and a no-op.
func (b *bridge) freeHandle(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return b.live.Release(handle)
}

// outputHandle is the pointer free_mesh will see for m: its vertex buffer,
// or its triangle buffer when there are no vertices.
func outputHandle(m *mesh.FlatMesh) uintptr {
	if d := m.Vertices.Data(); len(d) > 0 {
		return uintptr(unsafe.Pointer(&d[0]))
	}
	if d := m.Triangles.Data(); len(d) > 0 {
		return uintptr(unsafe.Pointer(&d[0]))
	}
	return 0
}
