package fileutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// TempPrefix starts the names of in-flight temp files. Listings skip them.
const TempPrefix = ".tmp-"

// IsTemp reports whether name is an in-flight temp file.
func IsTemp(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempPrefix)
}

// WriteAtomic writes content into a temp file next to p and renames it over
// p, creating the parent directory when needed. Readers see either the old
// or the new content.
func WriteAtomic(p string, content []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create directory", goerr.Value("dir", dir))
	}

	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.Value("dir", dir))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to rename temp file", goerr.Value("path", p))
	}
	return nil
}
