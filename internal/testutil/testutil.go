// Package testutil provides shared test utilities and fixtures.
//
// This package centralises mesh fixtures and allocation bookkeeping used by
// the marshaler, builder, pipeline and transport tests.
package testutil

import (
	"sync"
	"testing"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// UnitQuad returns the 4-vertex, 2-triangle unit square with +Z normals.
func UnitQuad() *mesh.FlatMesh {
	return mesh.Plane(1)
}

// UnitQuadWithoutNormals returns the unit square with an absent normal buffer.
func UnitQuadWithoutNormals() *mesh.FlatMesh {
	q := mesh.Plane(1)
	return mesh.Borrow(q.Vertices.Data(), nil, q.Triangles.Data(), q.VertexCount, q.TriangleCount)
}

// CountingAllocator is a heap allocator that records every allocation and
// free so tests can assert exactly-once release.
type CountingAllocator struct {
	mu          sync.Mutex
	FloatAllocs int
	IndexAllocs int
	floatFrees  map[*float32]int
	indexFrees  map[*int32]int
}

// NewCountingAllocator creates an allocator with empty counters.
func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{
		floatFrees: make(map[*float32]int),
		indexFrees: make(map[*int32]int),
	}
}

func (a *CountingAllocator) AllocFloats(n int) []float32 {
	if n == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.FloatAllocs++
	return make([]float32, n)
}

func (a *CountingAllocator) AllocIndices(n int) []int32 {
	if n == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.IndexAllocs++
	return make([]int32, n)
}

func (a *CountingAllocator) FreeFloats(buf []float32) {
	if len(buf) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.floatFrees[&buf[0]]++
}

func (a *CountingAllocator) FreeIndices(buf []int32) {
	if len(buf) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexFrees[&buf[0]]++
}

// Frees returns the total number of free calls.
func (a *CountingAllocator) Frees() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.floatFrees {
		n += c
	}
	for _, c := range a.indexFrees {
		n += c
	}
	return n
}

// Live returns allocations minus distinct buffers freed.
func (a *CountingAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.FloatAllocs + a.IndexAllocs - len(a.floatFrees) - len(a.indexFrees)
}

// AssertFreedOnce fails the test if any buffer was freed more than once.
func (a *CountingAllocator) AssertFreedOnce(t *testing.T) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	for p, c := range a.floatFrees {
		if c != 1 {
			t.Errorf("float buffer %p freed %d times", p, c)
		}
	}
	for p, c := range a.indexFrees {
		if c != 1 {
			t.Errorf("index buffer %p freed %d times", p, c)
		}
	}
}
