// Package db persists pipeline run summaries in SQLite and exposes them on
// the admin debug routes.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/httputil"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
)

var logf = monitoring.Component("db")

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsFS returns the embedded schema migrations.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return sub
}

// DB is the SQLite run ledger.
type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the database at path and applies connection pragmas without
// touching the schema.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database at path and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(sqlDB *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

// AttachAdminRoutes mounts the debug handlers on mux: tailsql over the run
// ledger and a JSON listing of recent runs.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "OSR run ledger",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("runs", "Recent reconstruction runs (JSON, ?limit=N)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		limit, ok := httputil.PositiveIntParam(r, "limit", 50)
		if !ok {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		runs, err := db.ListRecentRuns(r.Context(), limit)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
			return
		}
		httputil.WriteJSONOK(w, runs)
	}))

	debug.Handle("run", "One reconstruction run (JSON, ?id=RUN_ID)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			httputil.BadRequest(w, "id is required")
			return
		}
		run, err := db.GetRun(r.Context(), id)
		switch {
		case errors.Is(err, ErrRunNotFound):
			httputil.NotFound(w, err.Error())
		case err != nil:
			httputil.InternalServerError(w, err.Error())
		default:
			httputil.WriteJSONOK(w, run)
		}
	}))
	return nil
}
