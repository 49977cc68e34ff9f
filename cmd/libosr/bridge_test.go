package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/testutil"
)

func TestBridge_ProcessThenFree(t *testing.T) {
	alloc := testutil.NewCountingAllocator()
	b := newBridge(alloc)

	handle, out, err := b.processFlat(testutil.UnitQuad(), config.FromSentinels(-1, -1))
	require.NoError(t, err)
	require.NotZero(t, handle)
	assert.Equal(t, outputHandle(out), handle)
	assert.Positive(t, out.VertexCount)
	assert.Positive(t, out.TriangleCount)
	assert.Equal(t, 1, b.live.Len())

	require.NoError(t, b.freeHandle(handle))
	assert.Zero(t, b.live.Len())
	assert.Zero(t, alloc.Live())

	err = b.freeHandle(handle)
	assert.ErrorIs(t, err, mesh.ErrDoubleRelease)
	assert.Equal(t, codeDoubleRelease, b.fail(err))
	assert.Contains(t, b.lastErr.get(), "not a live mesh")
	alloc.AssertFreedOnce(t)
}

func TestBridge_FreeUnknownHandle(t *testing.T) {
	b := newBridge(testutil.NewCountingAllocator())
	err := b.freeHandle(0xdead0)
	assert.Equal(t, codeDoubleRelease, errorCode(err))
	assert.NoError(t, b.freeHandle(0), "an empty mesh has nothing to free")
}

func TestBridge_EmptyOutputIsNotRegistered(t *testing.T) {
	alloc := testutil.NewCountingAllocator()
	b := newBridge(alloc)

	handle, out, err := b.processFlat(testutil.UnitQuad(), config.FromSentinels(10, -1))
	require.NoError(t, err)
	assert.Zero(t, handle)
	assert.Zero(t, out.VertexCount)
	assert.Zero(t, b.live.Len())
	assert.NoError(t, b.freeHandle(handle))
	assert.Zero(t, alloc.Live())
}

func TestBridge_InvalidInput(t *testing.T) {
	alloc := testutil.NewCountingAllocator()
	b := newBridge(alloc)

	tests := []struct {
		name  string
		input *mesh.FlatMesh
		want  int
	}{
		{"no vertices", mesh.Borrow(nil, nil, nil, 0, 0), codeInvalidBufferLayout},
		{"short triangle buffer", mesh.Borrow(make([]float32, 9), nil, []int32{0, 1}, 3, 1), codeInvalidBufferLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, out, err := b.processFlat(tt.input, nil)
			assert.Zero(t, handle)
			assert.Nil(t, out)
			assert.Equal(t, tt.want, b.fail(err))
			assert.NotEmpty(t, b.lastErr.get())
		})
	}
	assert.Zero(t, b.live.Len())
	assert.Zero(t, alloc.Live())
}
