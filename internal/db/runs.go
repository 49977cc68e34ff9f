package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/pipeline"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

var _ pipeline.Recorder = (*DB)(nil)

const runColumns = `run_id, label, input_vertices, input_triangles, output_vertices,
	output_triangles, scale, smoothness, settings, started_unix_nano, duration_ns,
	status, error_kind, error`

// RecordRun inserts run into the ledger. A run without an id is assigned a
// fresh UUID.
func (db *DB) RecordRun(ctx context.Context, run pipeline.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO process_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.InputVertices, run.InputTriangles, run.OutputVertices,
		run.OutputTriangles, run.Scale, run.Smoothness, run.Settings, run.StartedAt.UnixNano(),
		int64(run.Duration), string(run.Status), string(run.ErrorKind), run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecentRuns returns up to limit runs, newest first.
func (db *DB) ListRecentRuns(ctx context.Context, limit int) ([]pipeline.Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM process_runs ORDER BY started_unix_nano DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []pipeline.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns the run with the given id or ErrRunNotFound.
func (db *DB) GetRun(ctx context.Context, id string) (pipeline.Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM process_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (pipeline.Run, error) {
	var (
		run               pipeline.Run
		startedNano       int64
		durationNano      int64
		status, errorKind string
	)
	err := row.Scan(
		&run.ID, &run.Label, &run.InputVertices, &run.InputTriangles, &run.OutputVertices,
		&run.OutputTriangles, &run.Scale, &run.Smoothness, &run.Settings, &startedNano,
		&durationNano, &status, &errorKind, &run.Error,
	)
	if err != nil {
		return pipeline.Run{}, err
	}
	run.StartedAt = time.Unix(0, startedNano).UTC()
	run.Duration = time.Duration(durationNano)
	run.Status = pipeline.Status(status)
	run.ErrorKind = mesh.Kind(errorKind)
	return run, nil
}
