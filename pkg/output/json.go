package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/rdt/pkg/models"
)

// JSONFormatter prints the final report as one JSON document
type JSONFormatter struct {
	writer io.Writer
	errors []string
}

// JSONReportData represents the final report data
type JSONReportData struct {
	ID          string           `json:"id"`
	Mode        string           `json:"mode"`
	Status      string           `json:"status"`
	ExitCode    int              `json:"exit_code"`
	DryRun      bool             `json:"dry_run"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Duration    string           `json:"duration"`
	DurationMs  int64            `json:"duration_ms"`
	Scanned     JSONScannedData  `json:"scanned"`
	Differences int              `json:"differences"`
	Summary     JSONSummaryData  `json:"summary"`
	Results     []JSONResultData `json:"results,omitempty"`
	Warnings    []JSONWarning    `json:"warnings,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
}

// JSONScannedData represents scanned tree statistics
type JSONScannedData struct {
	Source JSONScanData `json:"source"`
	Dest   JSONScanData `json:"destination"`
}

// JSONScanData counts the entries of one tree
type JSONScanData struct {
	Files    int   `json:"files"`
	Dirs     int   `json:"dirs"`
	Symlinks int   `json:"symlinks"`
	Other    int   `json:"other"`
	Bytes    int64 `json:"bytes"`
}

// JSONSummaryData represents operations statistics
type JSONSummaryData struct {
	Created     int   `json:"created"`
	Copied      int   `json:"copied"`
	Updated     int   `json:"updated"`
	Removed     int   `json:"removed"`
	Failed      int   `json:"failed"`
	Skipped     int   `json:"skipped"`
	Cancelled   int   `json:"cancelled"`
	BytesCopied int64 `json:"bytes_copied"`
}

// JSONResultData is the outcome of one operation
type JSONResultData struct {
	ID         int    `json:"id"`
	Operation  string `json:"operation"`
	Path       string `json:"path"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	DependsOn  []int  `json:"depends_on,omitempty"`
}

// JSONWarning is a non-fatal problem attached to a path
type JSONWarning struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewJSONFormatter creates a new JSON formatter writing to w
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	if writer != nil {
		f.writer = writer
	}
	return nil
}

// Progress is ignored so the output stays one parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	if f.writer == nil {
		f.writer = os.Stdout
	}
	data := NewJSONReport(report)
	data.Errors = f.errors

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error records an error for the final document
func (f *JSONFormatter) Error(err error) error {
	f.errors = append(f.errors, err.Error())
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

// NewJSONReport converts a report to its JSON representation
func NewJSONReport(report *models.SyncReport) JSONReportData {
	s := report.Summary
	data := JSONReportData{
		ID:          report.OperationID,
		Mode:        string(report.Mode),
		Status:      string(report.Status),
		ExitCode:    report.Status.ExitCode(),
		DryRun:      report.DryRun,
		Source:      report.SourcePath,
		Destination: report.DestPath,
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Scanned: JSONScannedData{
			Source: scanData(report.Source),
			Dest:   scanData(report.Dest),
		},
		Differences: report.Differences,
		Summary: JSONSummaryData{
			Created:     s.Created,
			Copied:      s.Copied,
			Updated:     s.Updated,
			Removed:     s.Removed,
			Failed:      s.Failed,
			Skipped:     s.Skipped,
			Cancelled:   s.Cancelled,
			BytesCopied: s.BytesCopied,
		},
	}
	for _, res := range report.Results {
		data.Results = append(data.Results, JSONResultData{
			ID:         res.Operation.ID,
			Operation:  string(res.Operation.Kind),
			Path:       res.Operation.Path,
			Status:     string(res.Status),
			Code:       string(res.Code),
			Error:      res.Error,
			Bytes:      res.BytesCopied,
			DurationMs: res.Duration.Milliseconds(),
			DependsOn:  res.Operation.DependsOn,
		})
	}
	data.Warnings = jsonWarnings(report.Warnings)
	return data
}

func scanData(s models.ScanStats) JSONScanData {
	return JSONScanData{Files: s.Files, Dirs: s.Dirs, Symlinks: s.Symlinks, Other: s.Other, Bytes: s.Bytes}
}

func jsonWarnings(warnings []models.Warning) []JSONWarning {
	var out []JSONWarning
	for _, w := range warnings {
		out = append(out, JSONWarning{Path: w.Path, Code: string(w.Code), Message: w.Message})
	}
	return out
}
