package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/rdt/internal/platform"
	"github.com/sdejongh/rdt/pkg/compare"
	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/ignore"
	"github.com/sdejongh/rdt/pkg/index"
	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/output"
	"github.com/sdejongh/rdt/pkg/storage"
	"github.com/sdejongh/rdt/pkg/walk"
)

// Engine drives one list, compare or sync run
type Engine struct {
	operation *models.SyncOperation
	formatter output.Formatter
	logger    logging.Logger
	out       io.Writer

	source storage.Backend
	dest   storage.Backend
}

// Comparison is the outcome of walking and diffing two trees
type Comparison struct {
	Source   *index.Snapshot
	Dest     *index.Snapshot
	Diffs    []models.DiffEntry
	Warnings []models.Warning

	// Incomplete holds the paths of either tree that could not be fully
	// listed. Nothing below them is removed.
	Incomplete []string
}

// Changes returns the differences, excluding unchanged paths
func (c *Comparison) Changes() []models.DiffEntry {
	return compare.Changes(c.Diffs)
}

// NewEngine creates a new engine. formatter may be nil; out receives the
// formatter output.
func NewEngine(operation *models.SyncOperation, formatter output.Formatter, logger logging.Logger, out io.Writer) *Engine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if out == nil {
		out = io.Discard
	}
	return &Engine{
		operation: operation,
		formatter: formatter,
		logger:    logger,
		out:       out,
	}
}

// open validates the operation and prepares the backends
func (e *Engine) open(ctx context.Context) error {
	op := e.operation
	if err := op.Validate(); err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, "", "invalid operation")
	}
	if op.ID == "" {
		op.ID = uuid.New().String()
	}

	src, err := platform.NormalizePath(op.SourcePath)
	if err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeRootUnreadable, op.SourcePath, "invalid source path")
	}
	e.source, err = storage.NewLocal(src)
	if err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeRootUnreadable, src, "cannot open source")
	}

	if op.Mode == models.ModeList {
		return nil
	}

	dst, err := platform.NormalizePath(op.DestPath)
	if err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeRootUnreadable, op.DestPath, "invalid destination path")
	}
	e.dest, err = storage.NewLocal(dst)
	if err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeRootUnreadable, dst, "cannot open destination")
	}

	if op.Mode == models.ModeSync && op.CreateDest {
		if _, err := e.dest.Stat(ctx, ""); errors.Is(err, fs.ErrNotExist) {
			e.logger.Info(ctx, "Creating destination", logging.Fields{"path": dst})
			if !op.DryRun {
				if err := e.dest.MkdirAll(ctx, "", 0o755); err != nil {
					return rdterrors.Wrap(err, rdterrors.CodeRootUnreadable, dst, "cannot create destination")
				}
			}
		}
	}
	return nil
}

func (e *Engine) close() {
	if e.source != nil {
		_ = e.source.Close()
	}
	if e.dest != nil {
		_ = e.dest.Close()
	}
}

// rules builds the root rule set from the global exclude patterns. A
// malformed pattern given by the user fails the run.
func (e *Engine) rules() (*ignore.RuleSet, error) {
	rules, errs := ignore.NewRootRuleSet(e.operation.ExcludePatterns, ignore.RuleOptions{
		IncludeHidden: e.operation.IncludeHidden,
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rules, nil
}

func (e *Engine) walkOptions() walk.Options {
	opts := walk.DefaultOptions()
	opts.Concurrency = e.operation.Concurrency
	if e.operation.WalkConcurrency > 0 {
		opts.Concurrency = e.operation.WalkConcurrency
	}
	opts.FollowSymlinks = e.operation.FollowSymlinks
	opts.NoIgnore = e.operation.NoIgnore
	if len(e.operation.RuleFiles) > 0 {
		opts.RuleFiles = e.operation.RuleFiles
	}
	return opts
}

// List walks the source tree and calls visit for every entry in traversal
// order. Returning an error from visit stops the walk.
func (e *Engine) List(ctx context.Context, visit func(models.Entry) error) (*walk.Result, error) {
	if err := e.open(ctx); err != nil {
		return nil, err
	}
	defer e.close()

	rules, err := e.rules()
	if err != nil {
		return nil, err
	}

	stream, err := walk.New(e.source, e.walkOptions(), e.logger).Walk(ctx, rules)
	if err != nil {
		return nil, err
	}

	var visitErr error
	for entry := range stream.All() {
		if visitErr = visit(entry); visitErr != nil {
			break
		}
	}
	res, err := stream.Wait()
	if visitErr != nil {
		return res, visitErr
	}
	if err != nil {
		return res, err
	}

	e.logger.Info(ctx, "Listed tree", logging.Fields{
		"root":     e.source.Root(),
		"entries":  res.Entries,
		"warnings": len(res.Warnings),
	})
	return res, nil
}

// walkTree builds the snapshot of one tree
func (e *Engine) walkTree(ctx context.Context, backend storage.Backend, rules *ignore.RuleSet) (*index.Snapshot, *walk.Result, error) {
	stream, err := walk.New(backend, e.walkOptions(), e.logger).Walk(ctx, rules)
	if err != nil {
		return nil, nil, err
	}
	snap := index.FromWalk(stream.All(), e.logger)
	res, err := stream.Wait()
	if err != nil {
		return nil, nil, err
	}
	return snap, res, nil
}

// compareTrees walks both trees concurrently and diffs them
func (e *Engine) compareTrees(ctx context.Context) (*Comparison, error) {
	rules, err := e.rules()
	if err != nil {
		return nil, err
	}

	var cmp Comparison
	var srcRes, dstRes *walk.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cmp.Source, srcRes, err = e.walkTree(gctx, e.source, rules)
		return err
	})
	g.Go(func() error {
		var err error
		cmp.Dest, dstRes, err = e.walkTree(gctx, e.dest, rules)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	copts := compare.DefaultOptions()
	copts.TimeTolerance = e.operation.TimeTolerance
	copts.Exact = e.operation.ExactComparison
	copts.Concurrency = e.operation.Concurrency
	copts.BufferSize = e.operation.BufferSize

	diffs, cmpWarnings := compare.New(e.source, e.dest, copts, e.logger).Diff(ctx, cmp.Source, cmp.Dest)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmp.Diffs = diffs
	cmp.Warnings = append(append(srcRes.Warnings, dstRes.Warnings...), cmpWarnings...)
	cmp.Incomplete = append(srcRes.Incomplete, dstRes.Incomplete...)

	e.logger.Info(ctx, "Compared trees", logging.Fields{
		"source":      e.source.Root(),
		"destination": e.dest.Root(),
		"differences": len(cmp.Changes()),
		"warnings":    len(cmp.Warnings),
	})
	return &cmp, nil
}

// Compare walks and diffs the source and destination trees
func (e *Engine) Compare(ctx context.Context) (*Comparison, error) {
	if err := e.open(ctx); err != nil {
		return nil, err
	}
	defer e.close()
	return e.compareTrees(ctx)
}

// Run performs a compare or sync run and returns its report. Only setup
// failures and cancellation before execution are returned as errors;
// per-path problems end up in the report.
func (e *Engine) Run(ctx context.Context) (*models.SyncReport, error) {
	if e.operation.Mode == models.ModeList {
		return nil, fmt.Errorf("list runs use List")
	}
	if err := e.open(ctx); err != nil {
		return nil, err
	}
	defer e.close()

	op := e.operation
	start := time.Now()
	op.StartedAt = &start
	report := &models.SyncReport{
		OperationID: op.ID,
		SourcePath:  e.source.Root(),
		DestPath:    e.dest.Root(),
		Mode:        op.Mode,
		DryRun:      op.DryRun,
		StartTime:   start,
	}

	var cmp *Comparison
	if op.Mode == models.ModeSync && op.CreateDest && op.DryRun && !e.exists(ctx, e.dest) {
		// Nothing to walk yet: everything in the source is new
		var err error
		cmp, err = e.sourceOnly(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		cmp, err = e.compareTrees(ctx)
		if err != nil {
			return nil, err
		}
	}
	report.Source = cmp.Source.Stats().ScanStats
	report.Dest = cmp.Dest.Stats().ScanStats
	report.Differences = len(cmp.Changes())
	report.Diffs = cmp.Diffs
	report.Warnings = cmp.Warnings

	if op.Mode == models.ModeSync {
		plan := Plan(cmp.Diffs, PlanOptions{Delete: op.Delete, Incomplete: cmp.Incomplete})
		report.Warnings = append(report.Warnings, plan.Warnings...)
		e.logger.Info(ctx, "Planned sync", logging.Fields{
			"operations": plan.Len(),
			"bytes":      plan.Bytes(),
			"dry_run":    op.DryRun,
		})

		if op.DryRun {
			report.Results = Planned(plan)
		} else {
			if e.formatter != nil {
				if err := e.formatter.Start(e.out, plan.Len(), plan.Bytes(), op.Concurrency); err != nil {
					e.logger.Warn(ctx, "Formatter start failed", logging.Fields{"error": err.Error()})
				}
			}
			exec := NewExecutor(e.source, e.dest, ExecOptions{
				Concurrency:    op.Concurrency,
				BufferSize:     op.BufferSize,
				BandwidthLimit: op.BandwidthLimit,
			}, e.formatter, e.logger)
			report.Results = exec.Execute(ctx, plan)
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(start)
	op.CompletedAt = &report.EndTime
	report.Tally()

	if e.formatter != nil && op.Mode == models.ModeSync {
		if err := e.formatter.Complete(report); err != nil {
			e.logger.Warn(ctx, "Formatter complete failed", logging.Fields{"error": err.Error()})
		}
	}

	e.logger.Info(ctx, "Run finished", logging.Fields{
		"id":       report.OperationID,
		"mode":     string(report.Mode),
		"status":   string(report.Status),
		"duration": report.Duration.String(),
	})
	return report, nil
}

func (e *Engine) exists(ctx context.Context, backend storage.Backend) bool {
	_, err := backend.Stat(ctx, "")
	return err == nil
}

// sourceOnly walks the source alone, treating the destination as empty
func (e *Engine) sourceOnly(ctx context.Context) (*Comparison, error) {
	rules, err := e.rules()
	if err != nil {
		return nil, err
	}
	src, res, err := e.walkTree(ctx, e.source, rules)
	if err != nil {
		return nil, err
	}
	diffs, _ := compare.New(e.source, e.dest, compare.DefaultOptions(), e.logger).Diff(ctx, src, index.New())
	return &Comparison{Source: src, Dest: index.New(), Diffs: diffs, Warnings: res.Warnings, Incomplete: res.Incomplete}, nil
}
