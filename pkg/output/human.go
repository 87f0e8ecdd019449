package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/sdejongh/rdt/pkg/models"
)

// HumanFormatter prints one line per finished operation and a summary
type HumanFormatter struct {
	mu         sync.Mutex
	writer     io.Writer
	totalFiles int
	totalBytes int64
	startTime  time.Time
	palette    *Palette
}

// NewHumanFormatter creates a new human-readable formatter writing to w
func NewHumanFormatter(w io.Writer, useColor bool) *HumanFormatter {
	return &HumanFormatter{writer: w, palette: NewPalette(useColor)}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if writer != nil {
		f.writer = writer
	}
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes
	f.startTime = time.Now()

	if f.writer != nil {
		fmt.Fprintf(f.writer, "Starting sync: %d operations, %s to copy, %d workers\n",
			totalFiles, formatBytes(totalBytes), maxWorkers)
	}
	return nil
}

// Progress reports finished operations
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case "file_complete":
		fmt.Fprintf(f.writer, "[%d/%d] %s %s %s",
			update.CurrentFile, update.TotalFiles,
			f.palette.ok.Sprint("✓"), opLabel(update.Operation), update.FilePath)
		if update.Operation == models.OpCopyFile {
			fmt.Fprintf(f.writer, " (%s)", formatBytes(update.BytesWritten))
		}
		fmt.Fprintln(f.writer)

	case "file_error":
		fmt.Fprintf(f.writer, "[%d/%d] %s %s %s: %v\n",
			update.CurrentFile, update.TotalFiles,
			f.palette.fail.Sprint("✗"), opLabel(update.Operation), update.FilePath, update.Error)
	}
	return nil
}

// Complete displays the summary
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer == nil {
		f.writer = io.Discard
	}
	return writeSummary(f.writer, report, f.palette)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s %v\n", f.palette.fail.Sprint("Error:"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// writeSummary renders a finished report
func writeSummary(w io.Writer, report *models.SyncReport, p *Palette) error {
	verb := "Sync"
	if report.Mode == models.ModeCompare {
		verb = "Compare"
	}
	if report.DryRun {
		verb += " (dry run)"
		if len(report.Results) > 0 {
			fmt.Fprintf(w, "\nPlanned operations:\n")
			for _, res := range report.Results {
				fmt.Fprintf(w, "  %s %s\n", opLabel(res.Operation.Kind), res.Operation.Path)
			}
		}
	}

	fmt.Fprintf(w, "\n%s completed in %s\n\n", verb, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Scanned:\n")
	fmt.Fprintf(w, "    Source:         %s\n", scanLine(report.Source))
	fmt.Fprintf(w, "    Destination:    %s\n", scanLine(report.Dest))
	fmt.Fprintf(w, "    Differences:    %d\n", report.Differences)

	if report.Mode == models.ModeSync {
		s := report.Summary
		fmt.Fprintf(w, "\n  Operations:\n")
		fmt.Fprintf(w, "    Dirs created:   %d\n", s.Created)
		fmt.Fprintf(w, "    Files copied:   %d\n", s.Copied)
		fmt.Fprintf(w, "    Files updated:  %d\n", s.Updated)
		fmt.Fprintf(w, "    Removed:        %d\n", s.Removed)
		fmt.Fprintf(w, "    Failed:         %d\n", s.Failed)
		fmt.Fprintf(w, "    Skipped:        %d\n", s.Skipped)
		if s.Cancelled > 0 {
			fmt.Fprintf(w, "    Cancelled:      %d\n", s.Cancelled)
		}
		fmt.Fprintf(w, "\n  Transfer:\n")
		fmt.Fprintf(w, "    Data:           %s\n", formatBytes(s.BytesCopied))
		if report.Duration.Seconds() > 0 && !report.DryRun {
			avgSpeed := float64(s.BytesCopied) / report.Duration.Seconds()
			fmt.Fprintf(w, "    Average speed:  %s/s\n", formatBytes(int64(avgSpeed)))
		}
	}

	fmt.Fprintf(w, "\nStatus: %s\n", p.status(report.Status))

	if failures := report.Failures(); len(failures) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, res := range failures {
			fmt.Fprintf(w, "  %s %s: [%s] %s\n", p.fail.Sprint(string(res.Status)), res.Operation.Path, res.Code, res.Error)
		}
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warn := range report.Warnings {
			fmt.Fprintf(w, "  %s %s: %s\n", p.warn.Sprint(string(warn.Code)), warn.Path, warn.Message)
		}
	}
	return nil
}

func scanLine(s models.ScanStats) string {
	line := fmt.Sprintf("%d files, %d dirs", s.Files, s.Dirs)
	if s.Symlinks > 0 {
		line += fmt.Sprintf(", %d symlinks", s.Symlinks)
	}
	if s.Other > 0 {
		line += fmt.Sprintf(", %d other", s.Other)
	}
	return line + ", " + formatBytes(s.Bytes)
}

func opLabel(kind models.OperationKind) string {
	switch kind {
	case models.OpCreateDirectory:
		return "mkdir"
	case models.OpCopyFile:
		return "copy"
	case models.OpRemoveFile:
		return "remove"
	case models.OpRemoveDirectoryRecursive:
		return "rmtree"
	case models.OpUpdateMetadata:
		return "touch"
	default:
		return string(kind)
	}
}

// Palette holds the colors used for terminal output
type Palette struct {
	added     *color.Color
	removed   *color.Color
	modified  *color.Color
	unchanged *color.Color
	ok        *color.Color
	fail      *color.Color
	warn      *color.Color
}

// NewPalette returns the output colors, all disabled when useColor is false
func NewPalette(useColor bool) *Palette {
	p := &Palette{
		added:     color.New(color.FgGreen),
		removed:   color.New(color.FgRed),
		modified:  color.New(color.FgCyan),
		unchanged: color.New(color.Faint),
		ok:        color.New(color.FgGreen),
		fail:      color.New(color.FgRed, color.Bold),
		warn:      color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.added, p.removed, p.modified, p.unchanged, p.ok, p.fail, p.warn} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Palette) status(s models.SyncStatus) string {
	switch s {
	case models.StatusSuccess:
		return p.ok.Sprint(string(s))
	case models.StatusPartial, models.StatusCancelled:
		return p.warn.Sprint(string(s))
	default:
		return p.fail.Sprint(string(s))
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
