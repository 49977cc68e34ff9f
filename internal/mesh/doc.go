// Package mesh owns the flat mesh buffers exchanged with callers.
//
// Responsibilities: the FlatMesh triple (vertices, normals, triangles),
// ownership tagging of every buffer (absent, borrowed, owned), layout
// validation of caller input, exactly-once release of owned output, and the
// error taxonomy shared by the marshaler, the builder and the entry points.
// Key types: FlatMesh, Buffer, Allocator, Registry, Error.
//
// Dependency rule: mesh depends on nothing else in this module. The engine
// and its visitor protocol live in internal/engine.
package mesh
