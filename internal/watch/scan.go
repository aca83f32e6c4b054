package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scan lists the regular files directly inside dir, sorted by name. The
// sentinel and dot-files are skipped.
func Scan(dir, sentinel string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan input directory: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if Ignored(entry.Name(), sentinel) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Ignored reports whether a file name is never queued.
func Ignored(name, sentinel string) bool {
	name = filepath.Base(name)
	if name == "" || name == "." {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	return sentinel != "" && name == sentinel
}
