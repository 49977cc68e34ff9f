// Package security guards the file paths the osr command writes to.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// canonicalPath returns path as an absolute path with symlinks resolved.
// When path does not exist yet, the nearest existing ancestor is resolved
// and the rest of the path re-attached, so a symlinked parent cannot
// redirect a new file.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, err := filepath.Rel(dir, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// WithinDirectory returns an error unless path resolves to a location
// inside dir.
func WithinDirectory(path, dir string) error {
	target, err := canonicalPath(path)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// WithinAny returns nil when path is inside at least one of dirs.
func WithinAny(path string, dirs []string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range dirs {
		if WithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of %v", dirs)
}

// LedgerExtensions are the file extensions accepted for the run ledger.
var LedgerExtensions = []string{".db", ".sqlite", ".sqlite3"}

// ValidateOutputPath checks that path carries one of exts and resolves to a
// location under the working directory or the system temp directory.
func ValidateOutputPath(path string, exts ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(exts, ext) {
		return fmt.Errorf("output must have one of %v extensions, got %q", exts, ext)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return WithinAny(path, []string{cwd, os.TempDir()})
}

// ValidateLedgerPath checks a SQLite run ledger path.
func ValidateLedgerPath(path string) error {
	return ValidateOutputPath(path, LedgerExtensions...)
}
