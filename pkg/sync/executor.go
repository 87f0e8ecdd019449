package sync

import (
	"context"
	"runtime"
	"sync"
	"time"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/output"
	"github.com/sdejongh/rdt/pkg/ratelimit"
	"github.com/sdejongh/rdt/pkg/storage"
)

// ExecOptions configures an Executor
type ExecOptions struct {
	// Concurrency is the number of operations run at once
	Concurrency int

	// BufferSize is the copy buffer size
	BufferSize int

	// BandwidthLimit caps the total copy rate in bytes per second, 0 for none
	BandwidthLimit int64
}

// DefaultExecOptions returns sensible defaults
func DefaultExecOptions() ExecOptions {
	return ExecOptions{
		Concurrency: runtime.GOMAXPROCS(0),
		BufferSize:  64 * 1024,
	}
}

// Executor applies a plan to the destination with a bounded worker pool.
// An operation starts as soon as all of its prerequisites have succeeded.
type Executor struct {
	source    storage.Backend
	dest      storage.Backend
	opts      ExecOptions
	limiter   *ratelimit.Limiter
	formatter output.Formatter
	logger    logging.Logger
}

// NewExecutor creates an executor. formatter may be nil.
func NewExecutor(source, dest storage.Backend, opts ExecOptions, formatter output.Formatter, logger logging.Logger) *Executor {
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.BufferSize < 1024 {
		opts.BufferSize = 64 * 1024
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Executor{
		source:    source,
		dest:      dest,
		opts:      opts,
		limiter:   ratelimit.New(opts.BandwidthLimit),
		formatter: formatter,
		logger:    logger,
	}
}

// schedule tracks the dependency state of one execution
type schedule struct {
	mu         sync.Mutex
	ops        []models.Operation
	results    []models.OperationResult
	finished   []bool
	remaining  []int
	dependents [][]int
	done       int
	ready      chan int
	closed     bool
}

func newSchedule(plan *models.Plan) *schedule {
	n := plan.Len()
	s := &schedule{
		ops:        plan.Operations,
		results:    make([]models.OperationResult, n),
		finished:   make([]bool, n),
		remaining:  make([]int, n),
		dependents: make([][]int, n),
		ready:      make(chan int, n),
	}
	for i, op := range s.ops {
		s.results[i].Operation = op
		s.remaining[i] = len(op.DependsOn)
		for _, dep := range op.DependsOn {
			s.dependents[dep] = append(s.dependents[dep], i)
		}
	}
	for i := range s.ops {
		if s.remaining[i] == 0 {
			s.ready <- i
		}
	}
	if n == 0 {
		close(s.ready)
	}
	return s
}

// finish records a result and releases or skips the dependents
func (s *schedule) finish(ctx context.Context, id int, res models.OperationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(ctx, id, res)
	if s.done == len(s.ops) && !s.closed {
		s.closed = true
		close(s.ready)
	}
}

func (s *schedule) finishLocked(ctx context.Context, id int, res models.OperationResult) {
	if s.finished[id] {
		return
	}
	res.Operation = s.ops[id]
	s.results[id] = res
	s.finished[id] = true
	s.done++

	for _, dep := range s.dependents[id] {
		if s.finished[dep] {
			continue
		}
		if res.Status == models.OpSucceeded {
			s.remaining[dep]--
			if s.remaining[dep] == 0 {
				s.ready <- dep
			}
			continue
		}
		s.finishLocked(ctx, dep, blocked(ctx, s.ops[id]))
	}
}

// blocked is the result of an operation whose prerequisite did not succeed
func blocked(ctx context.Context, prereq models.Operation) models.OperationResult {
	if ctx.Err() != nil {
		return cancelled()
	}
	return models.OperationResult{
		Status: models.OpSkipped,
		Code:   rdterrors.CodeSkippedDueToDependency,
		Error:  "prerequisite did not succeed: " + describe(prereq),
	}
}

func cancelled() models.OperationResult {
	return models.OperationResult{
		Status: models.OpCancelled,
		Code:   rdterrors.CodeCancelled,
		Error:  "run cancelled before the operation started",
	}
}

// Execute runs every operation of the plan and returns one result per
// operation, indexed by operation ID. Failures never stop independent
// operations. After ctx is cancelled no new operation starts; operations
// already running complete.
func (e *Executor) Execute(ctx context.Context, plan *models.Plan) []models.OperationResult {
	s := newSchedule(plan)
	total := plan.Len()

	var counterMu sync.Mutex
	started := 0
	next := func() int {
		counterMu.Lock()
		defer counterMu.Unlock()
		started++
		return started
	}

	var wg sync.WaitGroup
	for range min(e.opts.Concurrency, max(total, 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range s.ready {
				if ctx.Err() != nil {
					s.finish(ctx, id, cancelled())
					continue
				}
				s.finish(ctx, id, e.run(ctx, s.ops[id], next(), total))
			}
		}()
	}
	wg.Wait()
	return s.results
}

// run performs one operation. It is not interrupted by cancellation.
func (e *Executor) run(ctx context.Context, op models.Operation, index, total int) models.OperationResult {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	e.progress(output.ProgressUpdate{
		Type:        "file_start",
		Operation:   op.Kind,
		FilePath:    op.Path,
		TotalBytes:  sourceSize(op),
		CurrentFile: index,
		TotalFiles:  total,
	})

	var written int64
	var err error
	switch op.Kind {
	case models.OpCreateDirectory:
		err = e.createDirectory(ctx, op)
	case models.OpCopyFile:
		written, err = e.copyFile(ctx, op, func(n int64) {
			e.progress(output.ProgressUpdate{
				Type:         "file_progress",
				Operation:    op.Kind,
				FilePath:     op.Path,
				BytesWritten: n,
				TotalBytes:   sourceSize(op),
				CurrentFile:  index,
				TotalFiles:   total,
			})
		})
	case models.OpRemoveFile:
		err = e.removeFile(ctx, op)
	case models.OpRemoveDirectoryRecursive:
		err = e.removeDirectory(ctx, op)
	case models.OpUpdateMetadata:
		err = e.updateMetadata(ctx, op)
	default:
		err = rdterrors.Newf(rdterrors.CodeInternal, op.Path, "unknown operation %q", op.Kind)
	}

	res := models.OperationResult{
		Status:      models.OpSucceeded,
		BytesCopied: written,
		Duration:    time.Since(start),
	}
	if err != nil {
		res.Status = models.OpFailed
		res.Code = rdterrors.CodeOf(err)
		res.Error = err.Error()
		e.logger.Error(ctx, "Operation failed", err, logging.Fields{
			"operation": string(op.Kind),
			"path":      op.Path,
			"code":      string(res.Code),
		})
		e.progress(output.ProgressUpdate{
			Type:        "file_error",
			Operation:   op.Kind,
			FilePath:    op.Path,
			CurrentFile: index,
			TotalFiles:  total,
			Error:       err,
		})
		return res
	}

	e.logger.Debug(ctx, "Operation done", logging.Fields{
		"operation": string(op.Kind),
		"path":      op.Path,
		"bytes":     written,
	})
	e.progress(output.ProgressUpdate{
		Type:         "file_complete",
		Operation:    op.Kind,
		FilePath:     op.Path,
		BytesWritten: written,
		TotalBytes:   sourceSize(op),
		CurrentFile:  index,
		TotalFiles:   total,
	})
	return res
}

func (e *Executor) progress(update output.ProgressUpdate) {
	if e.formatter != nil {
		_ = e.formatter.Progress(update)
	}
}

func sourceSize(op models.Operation) int64 {
	if op.Kind == models.OpCopyFile && op.Source != nil && op.Source.Kind == models.KindFile {
		return op.Source.Size
	}
	return 0
}

// Planned returns the results of a dry run: every operation is reported as
// planned and nothing is touched
func Planned(plan *models.Plan) []models.OperationResult {
	results := make([]models.OperationResult, plan.Len())
	for i, op := range plan.Operations {
		results[i] = models.OperationResult{Operation: op, Status: models.OpPlanned}
	}
	return results
}
