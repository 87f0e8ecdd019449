package models

import (
	"time"
)

// SyncReport represents the results of a run
type SyncReport struct {
	// Run details
	OperationID string
	SourcePath  string
	DestPath    string
	Mode        RunMode
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Scanned trees
	Source ScanStats
	Dest   ScanStats

	// Differences found by the comparator, excluding unchanged paths
	Differences int

	// Diffs is the full comparison in path order, unchanged paths included
	Diffs []DiffEntry

	// Summary counts derived from Results
	Summary Summary

	// Results has one entry per planned operation, in plan order
	Results []OperationResult

	// Warnings from walking, comparing and planning
	Warnings []Warning

	// Overall status
	Status SyncStatus
}

// ScanStats counts what a walk produced
type ScanStats struct {
	Files    int
	Dirs     int
	Symlinks int
	Other    int
	Bytes    int64
}

// Add counts one entry
func (s *ScanStats) Add(e *Entry) {
	switch e.Kind {
	case KindFile:
		s.Files++
		s.Bytes += e.Size
	case KindDir:
		s.Dirs++
	case KindSymlink:
		s.Symlinks++
	default:
		s.Other++
	}
}

// Summary aggregates operation outcomes. In a dry run the planned
// operations are counted as if they had succeeded.
type Summary struct {
	Created     int
	Copied      int
	Updated     int
	Removed     int
	Failed      int
	Skipped     int
	Cancelled   int
	BytesCopied int64
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some operations failed
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates every attempted operation failed
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled SyncStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the sync status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// Tally recomputes Summary and Status from Results. Warnings never
// affect the status.
func (r *SyncReport) Tally() {
	var s Summary
	for _, res := range r.Results {
		switch res.Status {
		case OpSucceeded, OpPlanned:
			countDone(&s, res)
		case OpFailed:
			s.Failed++
		case OpSkipped:
			s.Skipped++
		case OpCancelled:
			s.Cancelled++
		}
	}
	r.Summary = s

	attempted := len(r.Results) - s.Skipped - s.Cancelled
	switch {
	case s.Cancelled > 0:
		r.Status = StatusCancelled
	case s.Failed > 0 && s.Failed == attempted:
		r.Status = StatusFailed
	case s.Failed > 0 || s.Skipped > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSuccess
	}
}

func countDone(s *Summary, res OperationResult) {
	op := res.Operation
	switch op.Kind {
	case OpCreateDirectory:
		s.Created++
	case OpCopyFile:
		if op.Dest == nil {
			s.Copied++
		} else {
			s.Updated++
		}
		s.BytesCopied += res.BytesCopied
	case OpUpdateMetadata:
		s.Updated++
	case OpRemoveFile, OpRemoveDirectoryRecursive:
		s.Removed++
	}
}

// Failures returns the results that did not succeed, in plan order
func (r *SyncReport) Failures() []OperationResult {
	var out []OperationResult
	for _, res := range r.Results {
		switch res.Status {
		case OpFailed, OpSkipped, OpCancelled:
			out = append(out, res)
		}
	}
	return out
}
