package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_CreateThenOpen(t *testing.T) {
	m := NewMemoryFileSystem()

	w, err := m.Create("out/osr.json")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, `{"scale": 1}`); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if data, _ := m.ReadFile("out/osr.json"); len(data) != 0 {
		t.Errorf("data visible before Close: %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := m.Open("out/./osr.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != `{"scale": 1}` {
		t.Errorf("got %q", got)
	}
	info, err := f.Stat()
	if err != nil || info.Name() != "osr.json" || info.Size() != 12 {
		t.Errorf("Stat = %v, %v", info, err)
	}
}

func TestMemoryFileSystem_OpenMissing(t *testing.T) {
	_, err := NewMemoryFileSystem().Open("missing.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("a/b/c", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, dir := range []string{"a", "a/b", "a/b/c"} {
		if !m.IsDir(dir) {
			t.Errorf("%s not recorded as a directory", dir)
		}
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("b.json", []byte("b"))
	m.WriteFile("a.json", []byte("a"))
	got := m.Files()
	if len(got) != 2 || got[0] != "a.json" || got[1] != "b.json" {
		t.Errorf("Files() = %v", got)
	}
}

func TestOSFileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	var fsys FileSystem = OSFileSystem{}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "params.json")
	w, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, `{}`); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != `{}` {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}
