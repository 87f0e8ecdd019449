package platform

import "errors"

// FileKey identifies a filesystem object independently of its path
type FileKey struct {
	Dev uint64
	Ino uint64
}

func errorIs(err, target error) bool {
	return err != nil && errors.Is(err, target)
}
