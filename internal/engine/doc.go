// Package engine describes the surface-reconstruction engine this module
// drives: the scan it consumes, the settings it is configured with and the
// visitor protocol it uses to emit the extracted mesh.
//
// The engine itself is an external collaborator. Package reference contains
// a deterministic in-process implementation.
//
// Engines are not assumed to be safe for concurrent use. Callers serialise
// access (see internal/pipeline).
package engine
