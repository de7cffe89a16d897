// Package testutil provides temporary vaults and CLI helpers for weft tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// TestVault represents a temporary vault for testing.
type TestVault struct {
	Path  string
	t     *testing.T
	files map[string]string
}

// NewTestVault creates a new test vault builder.
// Call Build() to create the actual vault directory.
func NewTestVault(t *testing.T) *TestVault {
	t.Helper()
	return &TestVault{
		t:     t,
		files: make(map[string]string),
	}
}

// WithFile adds a file to the vault.
// The path is slash-separated and relative to the vault root.
func (v *TestVault) WithFile(path, content string) *TestVault {
	v.files[path] = content
	return v
}

// WithConfig sets the per-vault .weft/config.toml.
func (v *TestVault) WithConfig(toml string) *TestVault {
	v.files[".weft/config.toml"] = toml
	return v
}

// Build creates the vault directory and all configured files.
// Files are written in path order so directory walks see a stable tree.
func (v *TestVault) Build() *TestVault {
	v.t.Helper()

	v.Path = v.t.TempDir()

	paths := make([]string, 0, len(v.files))
	for p := range v.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		v.WriteFile(p, v.files[p])
	}

	return v
}

// WriteFile writes a file into a built vault, creating directories as needed.
func (v *TestVault) WriteFile(relPath, content string) {
	v.t.Helper()
	fullPath := v.Abs(relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		v.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// RemoveFile deletes a file from a built vault.
func (v *TestVault) RemoveFile(relPath string) {
	v.t.Helper()
	if err := os.Remove(v.Abs(relPath)); err != nil {
		v.t.Fatalf("failed to remove file %s: %v", relPath, err)
	}
}

// Abs returns the absolute path of a vault-relative path.
func (v *TestVault) Abs(relPath string) string {
	return filepath.Join(v.Path, filepath.FromSlash(relPath))
}

// ReadFile reads a file from the vault.
// Returns the content as a string.
func (v *TestVault) ReadFile(relPath string) string {
	v.t.Helper()
	content, err := os.ReadFile(v.Abs(relPath))
	if err != nil {
		v.t.Fatalf("failed to read file %s: %v", relPath, err)
	}
	return string(content)
}

// FileExists checks if a file exists in the vault.
func (v *TestVault) FileExists(relPath string) bool {
	v.t.Helper()
	_, err := os.Stat(v.Abs(relPath))
	return err == nil
}
