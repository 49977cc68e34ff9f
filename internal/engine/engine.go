package engine

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"
)

// MeshVisitor receives an extracted mesh as a push stream:
// Begin once, then exactly the declared vertices and faces, then End.
// Engines stop at the first error a visitor returns.
type MeshVisitor interface {
	Begin(vertices, faces int) error
	AddVertex(position, color r3.Vec) error
	AddFace(indices []uint32) error
	End() error
}

// Data is the engine's working container for one reconstruction.
type Data interface {
	AddScan(scan *Scan) error
	IntegrateScan(ctx context.Context, scan *Scan) error
	ExtractFineMesh(v MeshVisitor, triangulate bool) error
}

// Engine creates Data containers.
type Engine interface {
	DefaultSettings() MeshSettings
	NewData(settings MeshSettings) (Data, error)
}

// Scan is one captured surface sample: positions, optional normals,
// optional colours and triangle connectivity, all as 3xN views.
type Scan struct {
	Positions PointMatrix
	Normals   PointMatrix
	Colors    ColorMatrix
	Faces     IndexMatrix
	Label     string
}

// NewScan assembles a scan from its matrices.
func NewScan(positions, normals PointMatrix, colors ColorMatrix, faces IndexMatrix, label string) *Scan {
	return &Scan{
		Positions: positions,
		Normals:   normals,
		Colors:    colors,
		Faces:     faces,
		Label:     label,
	}
}

// VertexCount returns the number of scan points.
func (s *Scan) VertexCount() int { return s.Positions.Cols() }

// FaceCount returns the number of scan triangles.
func (s *Scan) FaceCount() int { return s.Faces.Cols() }

// HasNormals reports whether the scan carries per-vertex normals.
func (s *Scan) HasNormals() bool { return !s.Normals.IsEmpty() }
