package repository

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// Resolve returns the first candidate base path under which every required
// file exists. It performs no I/O of its own: exists decides.
func Resolve(candidates, required []string, exists func(path string) bool) (string, error) {
	for _, base := range candidates {
		ok := true
		for _, name := range required {
			if !exists(Join(base, name)) {
				ok = false
				break
			}
		}
		if ok {
			return base, nil
		}
	}
	return "", missing("resolve", errors.New("no candidate directory holds "+strings.Join(required, ", ")))
}

// Join builds the slash-separated path of name under base. An empty base is
// the working directory.
func Join(base, name string) string {
	return path.Clean(filepath.ToSlash(filepath.Join(base, name)))
}

// Exists returns an exists func for Resolve backed by fsys.
func Exists(fsys fs.FS) func(string) bool {
	return func(p string) bool {
		info, err := fs.Stat(fsys, p)
		return err == nil && !info.IsDir()
	}
}
