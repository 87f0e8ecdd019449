package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/rdt/pkg/models"
)

const progressTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }} {{string . "suffix"}}`

// refreshRate returns the bar redraw interval. Windows terminals are slow
// with ANSI sequences.
func refreshRate() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a byte progress bar during sync and prints the
// human summary at the end
type ProgressFormatter struct {
	mu      sync.Mutex
	writer  io.Writer
	bar     *pb.ProgressBar
	palette *Palette

	totalOps  int
	doneOps   int
	failedOps int
	startTime time.Time

	// copied tracks the bytes already reported per running operation
	copied map[int]int64
}

// NewProgressFormatter creates a new progress bar formatter writing to w
func NewProgressFormatter(w io.Writer, useColor bool) *ProgressFormatter {
	return &ProgressFormatter{
		writer:  w,
		palette: NewPalette(useColor),
		copied:  make(map[int]int64),
	}
}

// Start creates the bar. Plans without file copies only get the summary.
func (f *ProgressFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer != nil {
		f.writer = writer
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	f.totalOps = totalFiles
	f.startTime = time.Now()

	if totalBytes <= 0 {
		return nil
	}

	f.bar = pb.New64(totalBytes).
		SetTemplateString(progressTemplate).
		SetWriter(f.writer).
		SetRefreshRate(refreshRate()).
		Set(pb.Bytes, true).
		Set("prefix", f.prefix()).
		Set("suffix", "")
	if width := terminalWidth(f.writer); width > 0 {
		f.bar.SetWidth(width)
	}
	f.bar.Start()
	return nil
}

func (f *ProgressFormatter) prefix() string {
	return fmt.Sprintf("[%d/%d]", f.doneOps, f.totalOps)
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case "file_progress":
		f.advance(update.CurrentFile, update.BytesWritten)
	case "file_complete":
		f.advance(update.CurrentFile, update.BytesWritten)
		delete(f.copied, update.CurrentFile)
		f.doneOps++
	case "file_error":
		delete(f.copied, update.CurrentFile)
		f.doneOps++
		f.failedOps++
	default:
		return nil
	}

	if f.bar != nil {
		f.bar.Set("prefix", f.prefix())
		suffix := formatDuration(time.Since(f.startTime))
		if f.failedOps > 0 {
			suffix += " " + f.palette.fail.Sprintf("%d failed", f.failedOps)
		}
		f.bar.Set("suffix", suffix)
	}
	return nil
}

func (f *ProgressFormatter) advance(op int, total int64) {
	delta := total - f.copied[op]
	if delta <= 0 {
		return
	}
	f.copied[op] = total
	if f.bar != nil {
		f.bar.Add64(delta)
	}
}

// Complete stops the bar and displays the summary
func (f *ProgressFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	return writeSummary(f.writer, report, f.palette)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer != nil {
		fmt.Fprintf(f.writer, "\n%s %v\n", f.palette.fail.Sprint("Error:"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

// terminalWidth returns the width of w when it is a terminal, 0 otherwise
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}
