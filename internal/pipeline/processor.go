// Package pipeline runs caller meshes through a reconstruction engine and
// hands back an owned output mesh.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/builder"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/engine"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/marshal"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/timeutil"
)

var logf = monitoring.Component("pipeline")

// Processor serialises calls into a single engine. It is safe for
// concurrent use; the engine is not assumed to be.
type Processor struct {
	mu       sync.Mutex
	engine   engine.Engine
	alloc    mesh.Allocator
	recorder Recorder
	clock    timeutil.Clock
}

// Option configures a Processor.
type Option func(*Processor)

// WithAllocator sets the allocator for output buffers.
func WithAllocator(a mesh.Allocator) Option {
	return func(p *Processor) { p.alloc = a }
}

// WithRecorder sets the sink for run summaries.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithClock sets the clock used to stamp runs.
func WithClock(c timeutil.Clock) Option {
	return func(p *Processor) { p.clock = c }
}

// NewProcessor creates a Processor around eng. Output buffers come from
// mesh.DefaultAllocator unless WithAllocator is given.
func NewProcessor(eng engine.Engine, opts ...Option) *Processor {
	p := &Processor{
		engine: eng,
		alloc:  mesh.DefaultAllocator,
		clock:  timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process reconstructs input and returns an owned triangle mesh. The input
// is only read. On any failure the partial output is released and the
// returned mesh is nil. The caller releases a successful result with Free.
func (p *Processor) Process(ctx context.Context, input *mesh.FlatMesh, params *config.Parameters) (*mesh.FlatMesh, error) {
	start := p.clock.Now()
	run := Run{
		ID:        uuid.NewString(),
		Label:     params.GetLabel(),
		StartedAt: start,
	}
	if input != nil {
		run.InputVertices = input.VertexCount
		run.InputTriangles = input.TriangleCount
	}

	out, err := p.process(ctx, input, params, &run)

	run.Duration = p.clock.Since(start)
	if err != nil {
		run.Status = StatusFailed
		run.ErrorKind = mesh.KindOf(err)
		run.Error = err.Error()
		logf("run %s failed after %v: %v", run.ID, run.Duration, err)
	} else {
		run.Status = StatusOK
		run.OutputVertices = out.VertexCount
		run.OutputTriangles = out.TriangleCount
		logf("run %s: %d/%d -> %d/%d vertices/triangles in %v (%s)", run.ID,
			run.InputVertices, run.InputTriangles, run.OutputVertices, run.OutputTriangles,
			run.Duration, run.Settings)
	}

	if p.recorder != nil {
		if rerr := p.recorder.RecordRun(context.WithoutCancel(ctx), run); rerr != nil {
			logf("record run %s: %v", run.ID, rerr)
		}
	}
	return out, err
}

func (p *Processor) process(ctx context.Context, input *mesh.FlatMesh, params *config.Parameters, run *Run) (*mesh.FlatMesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, engineError("process", err)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, &mesh.Error{Phase: mesh.PhaseValidate, Kind: mesh.KindInvalidParameters, Cause: err}
	}

	settings, err := marshal.Settings(p.engine, params)
	if err != nil {
		return nil, &mesh.Error{Phase: mesh.PhaseValidate, Kind: mesh.KindInvalidParameters, Cause: err}
	}
	run.Scale = settings.Scale()
	run.Smoothness = settings.Smoothness
	run.Settings = settings.String()

	scan, err := marshal.NewScan(input, run.Label)
	if err != nil {
		return nil, err
	}

	b := builder.New(p.alloc)
	out, err := p.reconstruct(ctx, settings, scan, b)
	if err != nil {
		b.Discard()
		return nil, err
	}
	return out, nil
}

// reconstruct drives the engine while holding the processor lock.
func (p *Processor) reconstruct(ctx context.Context, settings engine.MeshSettings, scan *engine.Scan, b *builder.Builder) (*mesh.FlatMesh, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.engine.NewData(settings)
	if err != nil {
		return nil, engineError("new data", err)
	}
	if err := data.AddScan(scan); err != nil {
		return nil, engineError("add scan", err)
	}
	if err := data.IntegrateScan(ctx, scan); err != nil {
		return nil, engineError("integrate scan", err)
	}
	if err := data.ExtractFineMesh(b, true); err != nil {
		return nil, engineError("extract fine mesh", err)
	}
	return b.Mesh()
}

// engineError wraps err as an engine failure unless it already carries a
// mesh error kind, as visitor errors returned through the engine do.
func engineError(stage string, err error) error {
	var me *mesh.Error
	if errors.As(err, &me) {
		return err
	}
	return &mesh.Error{Phase: mesh.PhaseEngine, Kind: mesh.KindEngine, Detail: stage, Cause: err}
}

// Free releases an output mesh returned by Process. It reports
// mesh.ErrDoubleRelease on a second call and mesh.ErrNotOwned for caller
// memory; a nil mesh is a no-op.
func Free(m *mesh.FlatMesh) error {
	return m.Release()
}
