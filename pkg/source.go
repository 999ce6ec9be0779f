package hydrogen

import (
	"os"
	"path/filepath"
	"strings"
)

// Source holds the owned contents of one parsed file or string, plus an
// optional originating file path. A Source is immutable once created and
// lives for the owning State's lifetime.
type Source struct {
	Path     string // empty for sources created from a bare string
	Contents string
}

// addSource appends a new Source to the state and returns its index.
func (s *State) addSource(path, contents string) int {
	s.sources = append(s.sources, &Source{Path: path, Contents: contents})
	return len(s.sources) - 1
}

// addSourceFile reads a file from disk and registers it as a Source.
func (s *State) addSourceFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	return s.addSource(path, string(data)), nil
}

// packageNameFromPath computes a package name from a file path: the final
// path component minus a single trailing extension.
func packageNameFromPath(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
