package mesh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/testutil"
)

func TestRegistry_ReleaseOnce(t *testing.T) {
	alloc := testutil.NewCountingAllocator()
	m, err := mesh.Allocate(alloc, 3, 1)
	require.NoError(t, err)

	r := mesh.NewRegistry()
	require.NoError(t, r.Register(0x1000, m))
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Release(0x1000))
	assert.Equal(t, 0, r.Len())
	assert.True(t, m.Released())

	err = r.Release(0x1000)
	assert.ErrorIs(t, err, mesh.ErrDoubleRelease)
	alloc.AssertFreedOnce(t)
}

func TestRegistry_RejectsBadRegistrations(t *testing.T) {
	r := mesh.NewRegistry()
	owned, err := mesh.Allocate(nil, 3, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Register(0, owned), mesh.ErrProtocol)
	assert.ErrorIs(t, r.Register(0x10, testutil.UnitQuad()), mesh.ErrNotOwned)
	assert.ErrorIs(t, r.Register(0x10, nil), mesh.ErrNotOwned)

	require.NoError(t, r.Register(0x10, owned))
	assert.ErrorIs(t, r.Register(0x10, owned), mesh.ErrProtocol)
}

func TestRegistry_UnknownHandle(t *testing.T) {
	r := mesh.NewRegistry()
	assert.ErrorIs(t, r.Release(0xdead), mesh.ErrDoubleRelease)
}

func TestRegistry_Close(t *testing.T) {
	alloc := testutil.NewCountingAllocator()
	r := mesh.NewRegistry()
	for i := 1; i <= 3; i++ {
		m, err := mesh.Allocate(alloc, 3, 1)
		require.NoError(t, err)
		require.NoError(t, r.Register(uintptr(i), m))
	}

	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, alloc.Live())
	alloc.AssertFreedOnce(t)
}
