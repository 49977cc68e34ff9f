package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/pipeline"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// loopbackRequest creates an httptest request with RemoteAddr set to loopback
// so that tsweb.AllowDebugAccess returns true.
func loopbackRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func sampleRun(id string, started time.Time) pipeline.Run {
	return pipeline.Run{
		ID:              id,
		Label:           "quad",
		InputVertices:   4,
		InputTriangles:  2,
		OutputVertices:  4,
		OutputTriangles: 2,
		Scale:           0.25,
		Smoothness:      0.5,
		Settings:        "rosy6/posy6 scale=0.25 smoothness=0.5",
		StartedAt:       started,
		Duration:        1500 * time.Microsecond,
		Status:          pipeline.StatusOK,
	}
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}
}

func TestMigrateVersion(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("got version %d dirty %v, want 1 clean", version, dirty)
	}

	// Applying again is a no-op.
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		t.Errorf("second MigrateUp: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := newTestDB(t)
	if err := db.MigrateDown(MigrationsFS()); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if _, err := db.ListRecentRuns(context.Background(), 1); err == nil {
		t.Error("expected query on dropped table to fail")
	}
}

func TestRecordAndGetRun(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)

	want := sampleRun("run-1", started)
	if err := db.RecordRun(ctx, want); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}

	if err := db.RecordRun(ctx, want); err == nil {
		t.Error("expected duplicate run id to fail")
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("got %v, want ErrRunNotFound", err)
	}
}

func TestRecordRunAssignsID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	failed := sampleRun("", time.Unix(10, 0).UTC())
	failed.Status = pipeline.StatusFailed
	failed.ErrorKind = mesh.KindVertexOverflow
	failed.Error = "vertex overflow"
	if err := db.RecordRun(ctx, failed); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := db.ListRecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].ID == "" {
		t.Error("expected a generated run id")
	}
	if runs[0].ErrorKind != mesh.KindVertexOverflow {
		t.Errorf("ErrorKind = %q, want %q", runs[0].ErrorKind, mesh.KindVertexOverflow)
	}
}

func TestListRecentRunsOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := db.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := db.ListRecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	if err := db.RecordRun(context.Background(), sampleRun("r1", time.Unix(1, 0).UTC())); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes: %v", err)
	}

	t.Run("runs", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, loopbackRequest(http.MethodGet, "/debug/runs?limit=5"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, loopbackRequest(http.MethodGet, "/debug/runs?limit=zero"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("run by id", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, loopbackRequest(http.MethodGet, "/debug/run?id=r1"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var got pipeline.Run
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != "r1" {
			t.Errorf("ID = %q, want r1", got.ID)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, loopbackRequest(http.MethodGet, "/debug/run?id=nope"))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("tailsql", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, loopbackRequest(http.MethodGet, "/debug/tailsql/"))
		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/tailsql/ should be registered, got 404")
		}
	})
}
