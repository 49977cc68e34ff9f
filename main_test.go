package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/db"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/fsutil"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/pipeline"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func TestParseFlags(t *testing.T) {
	o, showVersion, err := parseFlags(flag.NewFlagSet("osr", flag.ContinueOnError),
		[]string{"-scale", "2.5", "-grid", "3", "-version"})
	require.NoError(t, err)
	assert.True(t, showVersion)
	assert.Equal(t, 2.5, o.scale)
	assert.Equal(t, -1.0, o.smoothness)
	assert.Equal(t, 3, o.grid)
}

func TestOptionsParameters(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("params.json", []byte(`{"scale": 0.5, "smoothness": 0.1, "label": "file"}`))

	p, err := options{configPath: "params.json", scale: -1, smoothness: 0.3}.parameters(fsys)
	require.NoError(t, err)
	assert.Equal(t, 0.5, *p.Scale, "file value survives a sentinel flag")
	assert.InDelta(t, 0.3, *p.Smoothness, 1e-6, "flag overrides file")
	assert.Equal(t, "file", p.GetLabel())

	_, err = options{configPath: "params.yaml"}.parameters(fsys)
	assert.Error(t, err)
}

func TestRunOnce_RecordsLedgerAndSavesConfig(t *testing.T) {
	dir := t.TempDir()
	ledger := filepath.Join(dir, "ledger", "runs.db")
	saved := filepath.Join(dir, "effective.json")

	var stdout bytes.Buffer
	err := run(context.Background(), options{grid: 4, scale: 2.5, smoothness: -1, dbPath: ledger, saveConfig: saved}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "input:  25 vertices, 32 triangles")

	p, err := config.LoadParameters(saved)
	require.NoError(t, err)
	assert.Equal(t, 2.5, *p.Scale)
	assert.Nil(t, p.Smoothness)

	store, err := db.NewDB(ledger)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, pipeline.StatusOK, runs[0].Status)
	assert.Equal(t, 2.5, runs[0].Scale)
}

func TestRun_RejectsUnsafePaths(t *testing.T) {
	tests := []struct {
		name string
		o    options
	}{
		{"ledger outside temp", options{dbPath: "/etc/osr/runs.db"}},
		{"ledger extension", options{dbPath: filepath.Join(t.TempDir(), "runs.txt")}},
		{"config extension", options{saveConfig: filepath.Join(t.TempDir(), "params.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.o.grid, tt.o.scale, tt.o.smoothness = 1, -1, -1
			assert.Error(t, run(context.Background(), tt.o, &bytes.Buffer{}))
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{listen: "127.0.0.1:0", admin: "127.0.0.1:0", scale: -1, smoothness: -1}, &bytes.Buffer{})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
