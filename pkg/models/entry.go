package models

import (
	"io/fs"
	"path"
	"time"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
)

// EntryKind is the type of a filesystem object
type EntryKind string

const (
	// KindFile is a regular file
	KindFile EntryKind = "file"
	// KindDir is a directory
	KindDir EntryKind = "dir"
	// KindSymlink is a symbolic link that was not followed
	KindSymlink EntryKind = "symlink"
	// KindOther covers devices, sockets and named pipes
	KindOther EntryKind = "other"
)

// KindFromMode maps file mode type bits to an EntryKind
func KindFromMode(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Entry is one filesystem object found by a walk
type Entry struct {
	// Path is slash-separated and relative to the tree root
	Path string

	// Kind is the object type (the target's type when symlinks are followed)
	Kind EntryKind

	// Size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Mode holds permission and type bits
	Mode fs.FileMode

	// LinkTarget is the symlink target, empty for other kinds
	LinkTarget string

	// Hash is the content digest, only computed for exact comparison
	Hash string

	// Warnings recorded against this entry during the walk
	Warnings []Warning
}

// IsDir reports whether the entry is a directory
func (e *Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Name returns the last path element
func (e *Entry) Name() string {
	return path.Base(e.Path)
}

// Perm returns the permission bits
func (e *Entry) Perm() fs.FileMode {
	return e.Mode.Perm()
}

// Warning is a non-fatal problem recorded against a path
type Warning struct {
	Path    string              `json:"path"`
	Code    rdterrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// NewWarning builds a warning from an error, keeping its code when coded
func NewWarning(path string, err error) Warning {
	return Warning{
		Path:    path,
		Code:    rdterrors.CodeOf(err),
		Message: err.Error(),
	}
}
