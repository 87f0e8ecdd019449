//go:build !unix

package platform

import (
	"io/fs"
	"syscall"
)

// FileID is unavailable on this platform
func FileID(info fs.FileInfo) (FileKey, bool) {
	return FileKey{}, false
}

// IsDiskFull reports whether err was caused by a full device
func IsDiskFull(err error) bool {
	return errorIs(err, syscall.ENOSPC)
}

// IsNotDir reports whether a path component was not a directory
func IsNotDir(err error) bool {
	return errorIs(err, syscall.ENOTDIR)
}
