package mesh

import "sync"

// Registry maps opaque handles handed to foreign callers back to the owned
// meshes they came from, so a release request frees each mesh exactly once
// and unknown or repeated handles are reported instead of crashing.
type Registry struct {
	mu      sync.Mutex
	entries map[uintptr]*FlatMesh
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uintptr]*FlatMesh)}
}

// Register records m under handle. The handle must be non-zero and unused,
// and m must be owned.
func (r *Registry) Register(handle uintptr, m *FlatMesh) error {
	if handle == 0 {
		return Errorf(PhaseRelease, KindProtocol, "cannot register mesh under a zero handle")
	}
	if m == nil || !m.Owned() {
		return Errorf(PhaseRelease, KindNotOwned, "only owned meshes can be registered")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[handle]; exists {
		return Errorf(PhaseRelease, KindProtocol, "handle %#x already registered", handle)
	}
	r.entries[handle] = m
	return nil
}

// Release removes the mesh registered under handle and releases it.
// An unknown handle, including one that was already released, returns
// ErrDoubleRelease.
func (r *Registry) Release(handle uintptr) error {
	r.mu.Lock()
	m, ok := r.entries[handle]
	if ok {
		delete(r.entries, handle)
	}
	r.mu.Unlock()

	if !ok {
		return Errorf(PhaseRelease, KindDoubleRelease, "handle %#x is not a live mesh", handle)
	}
	return m.Release()
}

// Len returns the number of live meshes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every live mesh. The first release error is returned.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uintptr]*FlatMesh)
	r.mu.Unlock()

	var first error
	for _, m := range entries {
		if err := m.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
