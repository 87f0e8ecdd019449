package models

import (
	"time"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
)

// OperationKind is a filesystem mutation applied to the destination
type OperationKind string

const (
	// OpCreateDirectory creates one directory
	OpCreateDirectory OperationKind = "create_directory"
	// OpCopyFile copies a file or recreates a symlink
	OpCopyFile OperationKind = "copy_file"
	// OpRemoveFile removes a file or symlink
	OpRemoveFile OperationKind = "remove_file"
	// OpRemoveDirectoryRecursive removes a directory and its contents
	OpRemoveDirectoryRecursive OperationKind = "remove_directory_recursive"
	// OpUpdateMetadata applies permissions and modification time
	OpUpdateMetadata OperationKind = "update_metadata"
)

// Operation is one planned step. DependsOn lists the IDs of operations
// that must succeed before this one may run.
type Operation struct {
	ID        int
	Kind      OperationKind
	Path      string
	Source    *Entry
	Dest      *Entry
	DependsOn []int
}

// Plan is a dependency-ordered list of operations. Operations[i].ID == i,
// and every prerequisite appears before its dependents.
type Plan struct {
	Operations []Operation

	// Warnings lists source paths that cannot be reproduced
	Warnings []Warning
}

// Len returns the number of operations
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Operations)
}

// Bytes returns the total size of files to copy
func (p *Plan) Bytes() int64 {
	var total int64
	for _, op := range p.Operations {
		if op.Kind == OpCopyFile && op.Source != nil && op.Source.Kind == KindFile {
			total += op.Source.Size
		}
	}
	return total
}

// OperationStatus is the outcome of one operation
type OperationStatus string

const (
	// OpSucceeded means the operation completed
	OpSucceeded OperationStatus = "success"
	// OpFailed means the operation returned an error
	OpFailed OperationStatus = "failed"
	// OpSkipped means a prerequisite did not succeed
	OpSkipped OperationStatus = "skipped"
	// OpCancelled means the run was cancelled before it started
	OpCancelled OperationStatus = "cancelled"
	// OpPlanned means the operation was not executed (dry run)
	OpPlanned OperationStatus = "planned"
)

// OperationResult records what happened to one operation
type OperationResult struct {
	Operation   Operation
	Status      OperationStatus
	Code        rdterrors.ErrorCode
	Error       string
	BytesCopied int64
	Duration    time.Duration
}
