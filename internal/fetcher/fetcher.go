// Package fetcher reads dataset files by name from a local data directory,
// an HTTP origin, or zip archives.
package fetcher

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxDatasetBytes bounds a single dataset read.
const MaxDatasetBytes = 512 << 20

// ValidName reports whether name is a flat dataset file name: non-empty,
// local, and free of path separators.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.IsLocal(name)
}

func checkName(name string) error {
	if !ValidName(name) {
		return eris.Errorf("fetcher: invalid dataset name %q", name)
	}
	return nil
}
