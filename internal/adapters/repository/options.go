// Package repository loads the input tables from flat files and keeps them
// in a process-wide cache.
package repository

import (
	"io/fs"

	"github.com/okian/scholardash/pkg/logger"
)

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithFS sets the filesystem the tables are read from.
func WithFS(fsys fs.FS) Option {
	return func(l *Loader) {
		if fsys != nil {
			l.fsys = fsys
		}
	}
}

// WithCache shares a table cache between loaders.
func WithCache(c *TableCache) Option {
	return func(l *Loader) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}
