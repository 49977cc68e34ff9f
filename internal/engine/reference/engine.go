package reference

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine"
)

// smoothingIterations is the number of Jacobi smoothing passes.
const smoothingIterations = 3

var (
	errNilScan       = errors.New("scan is nil")
	errNotAdded      = errors.New("scan was not added to this data")
	errNotIntegrated = errors.New("no scan has been integrated")
)

// Engine creates reference Data containers.
type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

// New returns a reference engine.
func New() *Engine { return &Engine{} }

// DefaultSettings returns engine.DefaultMeshSettings.
func (*Engine) DefaultSettings() engine.MeshSettings {
	return engine.DefaultMeshSettings()
}

// NewData creates a container configured with settings.
func (*Engine) NewData(settings engine.MeshSettings) (engine.Data, error) {
	if settings.Rosy == nil || settings.Posy == nil {
		return nil, errors.New("mesh settings need orientation and position traits")
	}
	if settings.Scale() <= 0 {
		return nil, fmt.Errorf("mesh scale must be positive, got %g", settings.Scale())
	}
	if settings.Smoothness < 0 || settings.Smoothness >= 1 {
		return nil, fmt.Errorf("mesh smoothness must be in [0,1), got %g", settings.Smoothness)
	}
	return &Data{settings: settings}, nil
}

// Data holds the scans and the extracted mesh of one reconstruction.
type Data struct {
	settings   engine.MeshSettings
	scans      []*engine.Scan
	integrated *engine.Scan
	extracted  *extractedMesh
}

var _ engine.Data = (*Data)(nil)

// Settings returns the settings the container was created with.
func (d *Data) Settings() engine.MeshSettings { return d.settings }

// AddScan registers scan after checking its matrix shapes.
func (d *Data) AddScan(scan *engine.Scan) error {
	if scan == nil {
		return errNilScan
	}
	for _, s := range d.scans {
		if s == scan {
			return errors.New("scan already added")
		}
	}

	n := scan.VertexCount()
	if n == 0 {
		return errors.New("scan has no points")
	}
	if scan.FaceCount() == 0 {
		return errors.New("scan has no faces")
	}
	if !scan.Normals.IsEmpty() && scan.Normals.Cols() != n {
		return fmt.Errorf("scan has %d normals for %d points", scan.Normals.Cols(), n)
	}
	if !scan.Colors.IsEmpty() && scan.Colors.Cols() != n {
		return fmt.Errorf("scan has %d colors for %d points", scan.Colors.Cols(), n)
	}
	for j := 0; j < scan.FaceCount(); j++ {
		for _, idx := range scan.Faces.Face(j) {
			if int64(idx) >= int64(n) {
				return fmt.Errorf("face %d references point %d of %d", j, idx, n)
			}
		}
	}

	d.scans = append(d.scans, scan)
	return nil
}

// IntegrateScan smooths and remeshes an added scan.
func (d *Data) IntegrateScan(ctx context.Context, scan *engine.Scan) error {
	if scan == nil {
		return errNilScan
	}
	added := false
	for _, s := range d.scans {
		if s == scan {
			added = true
			break
		}
	}
	if !added {
		return errNotAdded
	}
	if d.integrated != nil {
		return errors.New("a scan is already integrated; multi-scan fusion is not supported")
	}

	positions := readPoints(scan.Positions)
	faces := readFaces(scan.Faces)

	var normals []r3.Vec
	if scan.HasNormals() {
		normals = readPoints(scan.Normals)
		for i := range normals {
			normals[i] = unit(normals[i])
		}
	} else {
		normals = estimateNormals(positions, faces)
	}

	var colors []r3.Vec
	if !scan.Colors.IsEmpty() {
		colors = make([]r3.Vec, scan.Colors.Cols())
		for j := range colors {
			colors[j] = scan.Colors.Vec(j)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	smooth(positions, normals, faces, d.settings.Smoothness, smoothingIterations)

	if err := ctx.Err(); err != nil {
		return err
	}
	extracted := cluster(positions, colors, faces, d.settings.Scale())
	if d.settings.Posy.Order() == 4 {
		extracted.pairQuads()
	}

	d.integrated = scan
	d.extracted = extracted
	return nil
}

// ExtractFineMesh replays the integrated mesh through v. With triangulate
// set, quads are split into two triangles; otherwise faces are emitted
// with their own arity.
func (d *Data) ExtractFineMesh(v engine.MeshVisitor, triangulate bool) error {
	if d.extracted == nil {
		return errNotIntegrated
	}
	m := d.extracted

	faceCount := len(m.faces)
	if triangulate {
		faceCount = 0
		for _, f := range m.faces {
			faceCount += len(f) - 2
		}
	}

	if err := v.Begin(len(m.positions), faceCount); err != nil {
		return fmt.Errorf("extract fine mesh: %w", err)
	}
	for i, p := range m.positions {
		if err := v.AddVertex(p, m.colors[i]); err != nil {
			return fmt.Errorf("extract fine mesh: vertex %d: %w", i, err)
		}
	}
	tri := make([]uint32, 3)
	for i, f := range m.faces {
		if !triangulate || len(f) == 3 {
			if err := v.AddFace(f); err != nil {
				return fmt.Errorf("extract fine mesh: face %d: %w", i, err)
			}
			continue
		}
		for k := 1; k+1 < len(f); k++ {
			tri[0], tri[1], tri[2] = f[0], f[k], f[k+1]
			if err := v.AddFace(tri); err != nil {
				return fmt.Errorf("extract fine mesh: face %d: %w", i, err)
			}
		}
	}
	if err := v.End(); err != nil {
		return fmt.Errorf("extract fine mesh: %w", err)
	}
	return nil
}

func readPoints(m engine.PointMatrix) []r3.Vec {
	out := make([]r3.Vec, m.Cols())
	col := make([]float64, 3)
	for j := range out {
		mat.Col(col, j, m)
		out[j] = r3.Vec{X: col[0], Y: col[1], Z: col[2]}
	}
	return out
}

func readFaces(m engine.IndexMatrix) [][3]uint32 {
	out := make([][3]uint32, m.Cols())
	for j := range out {
		out[j] = m.Face(j)
	}
	return out
}

func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return v
	}
	return r3.Scale(1/n, v)
}
