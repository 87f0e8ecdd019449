package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// WriteFile is a file opened for writing by CreateTemp
type WriteFile interface {
	io.Writer
	io.Closer
	Name() string
}

// SourceFile is a file opened for reading by Open
type SourceFile interface {
	io.ReadCloser
	// Stat describes the opened file, not whatever the path names now
	Stat() (fs.FileInfo, error)
}

// EntryError is a listed child that could not be described
type EntryError struct {
	Name string
	Err  error
}

// PartialListError is returned by ReadDir alongside the children it could
// describe when some of them failed
type PartialListError struct {
	Dir    string
	Failed []EntryError
}

func (e *PartialListError) Error() string {
	return fmt.Sprintf("%d entries of %q could not be read", len(e.Failed), e.Dir)
}

// Backend defines the filesystem operations used by the walker and executor.
// All paths are slash-separated and relative to Root; "" names the root.
type Backend interface {
	// Root returns the absolute native path of the tree
	Root() string

	// ReadDir lists the immediate children of a directory without
	// following symlinks. Children that fail individually are left out and
	// reported through a *PartialListError.
	ReadDir(ctx context.Context, path string) ([]fs.FileInfo, error)

	// Lstat returns metadata without following a final symlink
	Lstat(ctx context.Context, path string) (fs.FileInfo, error)

	// Stat returns metadata, following symlinks
	Stat(ctx context.Context, path string) (fs.FileInfo, error)

	// Readlink returns the target of a symlink
	Readlink(ctx context.Context, path string) (string, error)

	// ReadFile reads a whole file, used for rule files
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Open opens a file for reading
	Open(ctx context.Context, path string) (SourceFile, error)

	// CreateTemp creates a new uniquely named file inside dir. The
	// returned name is relative to Root.
	CreateTemp(ctx context.Context, dir, prefix string) (WriteFile, string, error)

	// Rename atomically replaces to with from
	Rename(ctx context.Context, from, to string) error

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string, perm fs.FileMode) error

	// Remove deletes a file, symlink or empty directory
	Remove(ctx context.Context, path string) error

	// RemoveAll deletes a path and everything below it
	RemoveAll(ctx context.Context, path string) error

	// Symlink creates path as a symlink pointing at target
	Symlink(ctx context.Context, target, path string) error

	// Chmod sets permission bits
	Chmod(ctx context.Context, path string, mode fs.FileMode) error

	// Chtimes sets access and modification times
	Chtimes(ctx context.Context, path string, atime, mtime time.Time) error

	// Close releases any resources held by the backend
	Close() error
}
