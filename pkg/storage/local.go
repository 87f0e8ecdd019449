package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sdejongh/rdt/internal/platform"
)

// Local is a filesystem-based storage backend on top of go-billy. The
// billy filesystem is rooted at "/" so symlink targets are never rewritten;
// tree-relative paths are resolved against rootPath.
type Local struct {
	rootPath string
	fs       billy.Filesystem
}

// NewLocal creates a new local filesystem backend. The root is not required
// to exist; the walker validates it before reading.
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := platform.NormalizePath(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	return &Local{
		rootPath: absPath,
		fs:       osfs.New(string(filepath.Separator)),
	}, nil
}

// Root returns the absolute tree root
func (l *Local) Root() string {
	return l.rootPath
}

func (l *Local) full(path string) string {
	return platform.FromSlash(l.rootPath, path)
}

// ReadDir lists a directory. billy's ReadDir drops the whole listing when
// one child cannot be described, so children are described one at a time.
func (l *Local) ReadDir(ctx context.Context, path string) ([]fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	infos := make([]fs.FileInfo, 0, len(entries))
	var failed []EntryError
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			failed = append(failed, EntryError{Name: entry.Name(), Err: err})
			continue
		}
		infos = append(infos, info)
	}
	if len(failed) > 0 {
		return infos, &PartialListError{Dir: path, Failed: failed}
	}
	return infos, nil
}

// Lstat returns metadata without following symlinks
func (l *Local) Lstat(ctx context.Context, path string) (fs.FileInfo, error) {
	info, err := l.fs.Lstat(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to stat: %w", err)
	}
	return info, nil
}

// Stat returns metadata, following symlinks
func (l *Local) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	info, err := l.fs.Stat(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to stat: %w", err)
	}
	return info, nil
}

// Readlink returns a symlink target
func (l *Local) Readlink(ctx context.Context, path string) (string, error) {
	target, err := l.fs.Readlink(l.full(path))
	if err != nil {
		return "", fmt.Errorf("failed to read link: %w", err)
	}
	return target, nil
}

// ReadFile reads a whole file
func (l *Local) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := util.ReadFile(l.fs, l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Open opens a file for reading
func (l *Local) Open(ctx context.Context, path string) (SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := l.fs.Open(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if sf, ok := file.(SourceFile); ok {
		return sf, nil
	}
	return &statFile{File: file, fs: l.fs}, nil
}

// statFile describes a billy file that cannot stat itself by its path
type statFile struct {
	billy.File
	fs billy.Filesystem
}

func (f *statFile) Stat() (fs.FileInfo, error) {
	return f.fs.Stat(f.Name())
}

// CreateTemp creates a temporary file inside dir
func (l *Local) CreateTemp(ctx context.Context, dir, prefix string) (WriteFile, string, error) {
	file, err := util.TempFile(l.fs, l.full(dir), prefix)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	return file, platform.JoinRel(dir, filepath.Base(file.Name())), nil
}

// Rename moves from onto to
func (l *Local) Rename(ctx context.Context, from, to string) error {
	if err := l.fs.Rename(l.full(from), l.full(to)); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string, perm fs.FileMode) error {
	if err := l.fs.MkdirAll(l.full(path), perm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Remove deletes a single object
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := l.fs.Remove(l.full(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// RemoveAll deletes a subtree
func (l *Local) RemoveAll(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("refusing to remove tree root %s", l.rootPath)
	}
	if err := util.RemoveAll(l.fs, l.full(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Symlink creates a symbolic link
func (l *Local) Symlink(ctx context.Context, target, path string) error {
	if err := l.fs.Symlink(target, l.full(path)); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Chmod sets permission bits
func (l *Local) Chmod(ctx context.Context, path string, mode fs.FileMode) error {
	var err error
	if ch, ok := l.fs.(billy.Change); ok {
		err = ch.Chmod(l.full(path), mode)
	} else {
		err = os.Chmod(l.full(path), mode)
	}
	if err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	return nil
}

// Chtimes sets access and modification times
func (l *Local) Chtimes(ctx context.Context, path string, atime, mtime time.Time) error {
	var err error
	if ch, ok := l.fs.(billy.Change); ok {
		err = ch.Chtimes(l.full(path), atime, mtime)
	} else {
		err = os.Chtimes(l.full(path), atime, mtime)
	}
	if err != nil {
		return fmt.Errorf("failed to set modification time: %w", err)
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
