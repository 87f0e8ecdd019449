package platform

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath cleans a root path and makes it absolute
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", &PathError{Path: p, Message: "path is empty"}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &PathError{Path: p, Message: err.Error()}
	}

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" && strings.HasPrefix(p, `\\`) && !strings.HasPrefix(abs, `\\`) {
		abs = `\` + abs
	}
	return abs, nil
}

// ToSlash converts a native relative path to the slash form used in entries
func ToSlash(rel string) string {
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// FromSlash resolves a slash-separated relative path under root
func FromSlash(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// JoinRel joins a directory and a child name in slash form
func JoinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// ParentRel returns the slash-form parent of a relative path, "" for top level
func ParentRel(rel string) string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// IsWithin reports whether child is rel itself or lies below it
func IsWithin(child, rel string) bool {
	if rel == "" {
		return true
	}
	return child == rel || strings.HasPrefix(child, rel+"/")
}

// IsHidden reports whether a base name follows the dotfile convention
func IsHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
