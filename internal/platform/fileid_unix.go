//go:build unix

package platform

import (
	"io/fs"
	"syscall"
)

// FileID returns the device and inode numbers behind info
func FileID(info fs.FileInfo) (FileKey, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileKey{}, false
	}
	return FileKey{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}

// IsDiskFull reports whether err was caused by a full device
func IsDiskFull(err error) bool {
	return errorIs(err, syscall.ENOSPC)
}

// IsNotDir reports whether a path component was not a directory
func IsNotDir(err error) bool {
	return errorIs(err, syscall.ENOTDIR)
}
