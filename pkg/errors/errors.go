// Package errors defines the coded error taxonomy shared by the walker,
// comparator and executor.
//
// Codes are stable strings so reports and tests can match on them without
// depending on message wording. Every per-path problem carries the path it
// relates to.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	// Setup errors.

	// CodeRootUnreadable means a tree root does not exist, is not a
	// directory or cannot be listed. Fatal for the run.
	CodeRootUnreadable ErrorCode = "ROOT_UNREADABLE"

	// CodeInvalidConfig indicates a configuration value is out of range.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Rule errors.

	// CodeInvalidPattern marks a malformed ignore pattern. The offending
	// line is dropped from its RuleSet.
	CodeInvalidPattern ErrorCode = "INVALID_PATTERN_SYNTAX"

	// Walk warnings.

	// CodePermissionDenied is returned when the OS refuses access.
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// CodeSymlinkCycle marks a followed symlink that leads back into an
	// already visited directory.
	CodeSymlinkCycle ErrorCode = "SYMLINK_CYCLE"

	// CodeEntryVanished marks an entry removed between listing and stat.
	CodeEntryVanished ErrorCode = "ENTRY_VANISHED"

	// CodeUnsupportedType marks devices, sockets and pipes, which are
	// listed but never copied.
	CodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// Execution errors.

	// CodeDiskFull indicates the destination ran out of space.
	CodeDiskFull ErrorCode = "DISK_FULL"

	// CodeSourceVanished indicates the source object disappeared after
	// the walk.
	CodeSourceVanished ErrorCode = "SOURCE_VANISHED"

	// CodeDestinationConflict indicates the destination path holds an
	// object of an unexpected type.
	CodeDestinationConflict ErrorCode = "DESTINATION_CONFLICT"

	// CodeSkippedDueToDependency marks an operation whose prerequisite
	// did not succeed.
	CodeSkippedDueToDependency ErrorCode = "SKIPPED_DUE_TO_DEPENDENCY"

	// CodeCancelled marks work abandoned after cancellation.
	CodeCancelled ErrorCode = "CANCELLED"

	// CodeIO is any other filesystem failure.
	CodeIO ErrorCode = "IO"

	// CodeInternal flags a broken internal invariant.
	CodeInternal ErrorCode = "INTERNAL"
)

// Error is a coded error bound to an optional path.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	if e.Wrapped != nil {
		return msg + ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with the given code.
func New(code ErrorCode, path, message string) *Error {
	return &Error{Code: code, Path: path, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code ErrorCode, path, format string, args ...any) *Error {
	return &Error{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and path to err. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, path, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Path: path, Message: message, Wrapped: err}
}

// CodeOf extracts the code of the first *Error in err's chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeIO
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}
