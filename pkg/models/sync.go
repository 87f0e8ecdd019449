package models

import (
	"time"
)

// RunMode selects what a run does
type RunMode string

const (
	// ModeList walks one tree and reports its entries
	ModeList RunMode = "list"
	// ModeCompare walks two trees and reports their differences
	ModeCompare RunMode = "compare"
	// ModeSync makes the destination match the source
	ModeSync RunMode = "sync"
)

// SyncOperation holds the options of one run
type SyncOperation struct {
	ID         string
	SourcePath string
	DestPath   string
	Mode       RunMode

	// Rule handling
	ExcludePatterns []string
	RuleFiles       []string
	NoIgnore        bool
	IncludeHidden   bool
	FollowSymlinks  bool

	// Comparison
	ExactComparison bool
	TimeTolerance   time.Duration

	// Sync
	DryRun     bool
	Delete     bool // Remove destination paths that don't exist in source
	CreateDest bool // Create the destination root when missing

	// Resources
	Concurrency     int
	WalkConcurrency int // Walker pool size, Concurrency when zero
	BufferSize      int
	BandwidthLimit  int64 // Copy rate cap in bytes per second, 0 = unlimited

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Validate checks if the operation configuration is valid
func (op *SyncOperation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.Mode != ModeList && op.DestPath == "" {
		return &ValidationError{Field: "DestPath", Message: "destination path is required"}
	}
	switch op.Mode {
	case ModeList, ModeCompare, ModeSync:
	default:
		return &ValidationError{Field: "Mode", Message: "mode must be list, compare or sync"}
	}
	if op.Concurrency < 1 {
		return &ValidationError{Field: "Concurrency", Message: "concurrency must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	if op.TimeTolerance < 0 {
		return &ValidationError{Field: "TimeTolerance", Message: "time tolerance cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
