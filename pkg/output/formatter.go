package output

import (
	"io"

	"github.com/sdejongh/rdt/pkg/models"
)

// ProgressUpdate represents a progress notification during sync
type ProgressUpdate struct {
	Type         string // "file_start", "file_progress", "file_complete", "file_error"
	Operation    models.OperationKind
	FilePath     string
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter renders the progress and outcome of a sync run.
// Implementations must be safe for concurrent Progress calls.
type Formatter interface {
	// Start initializes the formatter for a new sync operation.
	// maxWorkers indicates the number of parallel workers for display purposes
	Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error

	// Progress reports progress during sync
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays summary
	Complete(report *models.SyncReport) error

	// Error reports an error during sync
	Error(err error) error

	// Name returns the formatter name
	Name() string
}
