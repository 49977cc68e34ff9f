// Package marshal converts caller mesh buffers into engine input.
//
// Positions, normals and triangle indices are mapped in place as 3xN
// matrices; nothing is copied. Caller parameters are layered over the
// engine defaults.
package marshal

import (
	"fmt"
	"unsafe"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
)

var logf = monitoring.Component("marshal")

// NewScan validates m and maps its buffers into an engine scan. Absent
// normals become an empty normal matrix. Colour is never supplied, so the
// colour matrix is always empty. The scan aliases m's memory and must not
// outlive it.
func NewScan(m *mesh.FlatMesh, label string) (*engine.Scan, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	positions, err := engine.MapPoints(m.Vertices.Data(), m.VertexCount)
	if err != nil {
		return nil, layoutError(err)
	}

	var normals engine.PointMatrix
	if m.HasNormals() {
		if normals, err = engine.MapPoints(m.Normals.Data(), m.VertexCount); err != nil {
			return nil, layoutError(err)
		}
	}

	faces, err := engine.MapIndices(unsignedIndices(m.Triangles.Data()), m.TriangleCount)
	if err != nil {
		return nil, layoutError(err)
	}

	return engine.NewScan(positions, normals, engine.ColorMatrix{}, faces, label), nil
}

// unsignedIndices reinterprets validated, non-negative indices as uint32
// without copying.
func unsignedIndices(idx []int32) []uint32 {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&idx[0])), len(idx))
}

func layoutError(err error) error {
	return &mesh.Error{Phase: mesh.PhaseValidate, Kind: mesh.KindInvalidBufferLayout, Cause: err}
}

// ApplyParameters layers p over s. Scale overrides only when strictly
// positive and Smoothness only when in [0,1); anything else, including an
// unset field, keeps the current value.
func ApplyParameters(s *engine.MeshSettings, p *config.Parameters) {
	if p == nil {
		return
	}
	if p.Scale != nil {
		if *p.Scale > 0 {
			s.SetScale(*p.Scale)
		} else {
			logf("scale %g is not positive, keeping %g", *p.Scale, s.Scale())
		}
	}
	if p.Smoothness != nil {
		if v := *p.Smoothness; v >= 0 && v < 1 {
			s.Smoothness = v
		} else {
			logf("smoothness %g outside [0,1), keeping %g", v, s.Smoothness)
		}
	}
}

// Settings returns eng's defaults with the field traits selected by p and
// the parameter overrides applied.
func Settings(eng engine.Engine, p *config.Parameters) (engine.MeshSettings, error) {
	s := eng.DefaultSettings()

	rosy, err := engine.OrientationTraits(p.GetOrientationOrder())
	if err != nil {
		return s, fmt.Errorf("orientation traits: %w", err)
	}
	posy, err := engine.PositionTraits(p.GetPositionOrder())
	if err != nil {
		return s, fmt.Errorf("position traits: %w", err)
	}
	s.Rosy = rosy
	s.Posy = posy

	ApplyParameters(&s, p)
	return s, nil
}
