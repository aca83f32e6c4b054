package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, along with any missing parents, holding size bytes
// of filler. Sizes below one still produce a non-empty file.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, max(size, 1)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
