package pipeline

import (
	"context"
	"time"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

// Status is the outcome of a run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Run summarises one Process call.
type Run struct {
	ID    string
	Label string

	InputVertices   int
	InputTriangles  int
	OutputVertices  int
	OutputTriangles int

	// Settings as handed to the engine. Zero when the call failed before
	// settings were resolved.
	Scale      float64
	Smoothness float64
	Settings   string

	StartedAt time.Time
	Duration  time.Duration

	Status    Status
	ErrorKind mesh.Kind
	Error     string
}

// Recorder persists run summaries. Failures are logged and never fail the
// run that produced the summary.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, run Run) error

// RecordRun calls f.
func (f RecorderFunc) RecordRun(ctx context.Context, run Run) error { return f(ctx, run) }
