package sync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/rdt/pkg/compare"
	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/index"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/storage"
	"github.com/sdejongh/rdt/pkg/walk"
)

func newOperation(src, dst string, mode models.RunMode) *models.SyncOperation {
	return &models.SyncOperation{
		SourcePath:  src,
		DestPath:    dst,
		Mode:        mode,
		Delete:      true,
		Concurrency: 4,
		BufferSize:  32 * 1024,
		CreatedAt:   time.Now(),
	}
}

func runEngine(t *testing.T, op *models.SyncOperation) *models.SyncReport {
	t.Helper()
	report, err := NewEngine(op, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	return report
}

func resultKinds(report *models.SyncReport) []opSummary {
	out := make([]opSummary, 0, len(report.Results))
	for _, r := range report.Results {
		out = append(out, opSummary{r.Operation.Kind, r.Operation.Path})
	}
	return out
}

func TestEngineSyncIntoEmptyDestination(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "a/b.txt", "0123456789", time.Unix(100, 0))

	report := runEngine(t, newOperation(tr.src, tr.dst, models.ModeSync))

	assert.Equal(t, []opSummary{
		{models.OpCreateDirectory, "a"},
		{models.OpCopyFile, "a/b.txt"},
	}, resultKinds(report))
	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, 1, report.Summary.Created)
	assert.Equal(t, 1, report.Summary.Copied)
	assert.Equal(t, int64(10), report.Summary.BytesCopied)
	assert.NotEmpty(t, report.OperationID)
	assert.Equal(t, 1, report.Source.Files)

	data, err := os.ReadFile(filepath.Join(tr.dst, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestEngineSyncIsIdempotent(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "a/b.txt", "one", time.Unix(100, 0))
	tr.write(tr.src, "a/c/d.txt", "two", time.Unix(200, 0))
	tr.write(tr.src, "e.txt", "three", time.Unix(300, 0))
	tr.write(tr.dst, "e.txt", "stale content", time.Unix(50, 0))
	tr.write(tr.dst, "junk/x", "x", time.Unix(50, 0))

	first := runEngine(t, newOperation(tr.src, tr.dst, models.ModeSync))
	require.Equal(t, models.StatusSuccess, first.Status, first.Failures())
	assert.Equal(t, 1, first.Summary.Removed)
	assert.Equal(t, 1, first.Summary.Updated)

	second := runEngine(t, newOperation(tr.src, tr.dst, models.ModeSync))
	assert.Empty(t, second.Results)
	assert.Zero(t, second.Differences)

	cmp, err := NewEngine(newOperation(tr.src, tr.dst, models.ModeCompare), nil, nil, nil).Compare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cmp.Changes())
}

func TestEngineRemovesAndDryRun(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.dst, "old.txt", "stale", time.Unix(1, 0))

	t.Run("dry run", func(t *testing.T) {
		op := newOperation(tr.src, tr.dst, models.ModeSync)
		op.DryRun = true
		report := runEngine(t, op)

		require.Len(t, report.Results, 1)
		assert.Equal(t, models.OpRemoveFile, report.Results[0].Operation.Kind)
		assert.Equal(t, models.OpPlanned, report.Results[0].Status)
		assert.True(t, report.DryRun)
		assert.Equal(t, 1, report.Summary.Removed)
		assert.FileExists(t, filepath.Join(tr.dst, "old.txt"))
	})

	t.Run("keep extraneous", func(t *testing.T) {
		op := newOperation(tr.src, tr.dst, models.ModeSync)
		op.Delete = false
		report := runEngine(t, op)
		assert.Empty(t, report.Results)
		assert.Equal(t, 1, report.Differences)
		assert.FileExists(t, filepath.Join(tr.dst, "old.txt"))
	})

	t.Run("sync", func(t *testing.T) {
		report := runEngine(t, newOperation(tr.src, tr.dst, models.ModeSync))
		require.Len(t, report.Results, 1)
		assert.Equal(t, models.OpSucceeded, report.Results[0].Status)
		assert.NoFileExists(t, filepath.Join(tr.dst, "old.txt"))
	})
}

func TestEngineCompareReportsDifferences(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "same.txt", "abc", time.Unix(100, 0))
	tr.write(tr.dst, "same.txt", "abc", time.Unix(100, 0))
	tr.write(tr.src, "new.txt", "n", time.Unix(100, 0))
	tr.write(tr.dst, "edited.txt", "old", time.Unix(100, 0))
	tr.write(tr.src, "edited.txt", "newer", time.Unix(200, 0))

	report := runEngine(t, newOperation(tr.src, tr.dst, models.ModeCompare))
	assert.Equal(t, 2, report.Differences)
	assert.Empty(t, report.Results)
	assert.Equal(t, models.StatusSuccess, report.Status)

	cmp, err := NewEngine(newOperation(tr.src, tr.dst, models.ModeCompare), nil, nil, nil).Compare(context.Background())
	require.NoError(t, err)
	assert.Len(t, cmp.Diffs, 3)
	assert.Len(t, cmp.Changes(), 2)
}

func TestEngineExactComparison(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "f", "aaaa", time.Unix(100, 0))
	tr.write(tr.dst, "f", "bbbb", time.Unix(100, 0))

	op := newOperation(tr.src, tr.dst, models.ModeCompare)
	assert.Zero(t, runEngine(t, op).Differences)

	op = newOperation(tr.src, tr.dst, models.ModeCompare)
	op.ExactComparison = true
	assert.Equal(t, 1, runEngine(t, op).Differences)
}

func TestEngineExcludePatterns(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "keep.txt", "k", time.Unix(1, 0))
	tr.write(tr.src, "build/out.bin", "b", time.Unix(1, 0))
	tr.write(tr.src, "debug.log", "l", time.Unix(1, 0))

	op := newOperation(tr.src, tr.dst, models.ModeSync)
	op.ExcludePatterns = []string{"build/", "*.log"}
	report := runEngine(t, op)

	assert.Equal(t, []opSummary{{models.OpCopyFile, "keep.txt"}}, resultKinds(report))
	assert.NoDirExists(t, filepath.Join(tr.dst, "build"))
}

func TestEngineInvalidExcludePattern(t *testing.T) {
	tr := newTrees(t)
	op := newOperation(tr.src, tr.dst, models.ModeCompare)
	op.ExcludePatterns = []string{"foo\\"}

	_, err := NewEngine(op, nil, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, rdterrors.HasCode(err, rdterrors.CodeInvalidPattern))
}

func TestEngineRootUnreadable(t *testing.T) {
	tr := newTrees(t)
	missing := filepath.Join(tr.dst, "does-not-exist")

	_, err := NewEngine(newOperation(tr.src, missing, models.ModeSync), nil, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, rdterrors.HasCode(err, rdterrors.CodeRootUnreadable))
	assert.NoDirExists(t, missing)
}

func TestEngineCreateDestination(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "a/b.txt", "x", time.Unix(1, 0))
	dest := filepath.Join(tr.dst, "fresh")

	t.Run("dry run", func(t *testing.T) {
		op := newOperation(tr.src, dest, models.ModeSync)
		op.CreateDest = true
		op.DryRun = true
		report := runEngine(t, op)
		assert.Len(t, report.Results, 2)
		assert.NoDirExists(t, dest)
	})

	t.Run("sync", func(t *testing.T) {
		op := newOperation(tr.src, dest, models.ModeSync)
		op.CreateDest = true
		report := runEngine(t, op)
		assert.Equal(t, models.StatusSuccess, report.Status)
		assert.FileExists(t, filepath.Join(dest, "a", "b.txt"))
	})
}

func TestEngineInvalidOperation(t *testing.T) {
	op := newOperation("", "", models.ModeSync)
	_, err := NewEngine(op, nil, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, rdterrors.HasCode(err, rdterrors.CodeInvalidConfig))
}

func TestEngineList(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "a/b.txt", "x", time.Unix(1, 0))
	tr.write(tr.src, ".hidden", "h", time.Unix(1, 0))

	op := newOperation(tr.src, "", models.ModeList)
	var paths []string
	res, err := NewEngine(op, nil, nil, nil).List(context.Background(), func(e models.Entry) error {
		paths = append(paths, e.Path)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "a/b.txt"}, paths)
	assert.Equal(t, int64(2), res.Entries)
}

func TestEngineCancelledBeforeWalk(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "f", "x", time.Unix(1, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(newOperation(tr.src, tr.dst, models.ModeSync), nil, nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// unlistable fails to list the given source directories
type unlistable struct {
	*storage.Local
	dirs map[string]bool
}

func (u *unlistable) ReadDir(ctx context.Context, path string) ([]fs.FileInfo, error) {
	if u.dirs[path] {
		return nil, fmt.Errorf("failed to read directory: %w", fs.ErrPermission)
	}
	return u.Local.ReadDir(ctx, path)
}

func TestSyncKeepsDestinationBelowUnlistedSource(t *testing.T) {
	tr := newTrees(t)
	tr.write(tr.src, "a/precious", "data", time.Unix(100, 0))
	tr.write(tr.dst, "a/precious", "data", time.Unix(100, 0))
	tr.write(tr.dst, "stale", "x", time.Unix(100, 0))
	ctx := context.Background()

	local, err := storage.NewLocal(tr.src)
	require.NoError(t, err)
	src := &unlistable{Local: local, dirs: map[string]bool{"a": true}}
	dst, err := storage.NewLocal(tr.dst)
	require.NoError(t, err)

	snapshot := func(b storage.Backend) (*index.Snapshot, *walk.Result) {
		stream, err := walk.New(b, walk.Options{}, nil).Walk(ctx, nil)
		require.NoError(t, err)
		snap := index.FromWalk(stream.All(), nil)
		res, err := stream.Wait()
		require.NoError(t, err)
		return snap, res
	}
	srcSnap, srcRes := snapshot(src)
	dstSnap, dstRes := snapshot(dst)
	require.Equal(t, []string{"a"}, srcRes.Incomplete)

	diffs, _ := compare.New(src, dst, compare.DefaultOptions(), nil).Diff(ctx, srcSnap, dstSnap)
	plan := Plan(diffs, PlanOptions{Delete: true, Incomplete: append(srcRes.Incomplete, dstRes.Incomplete...)})
	assert.Equal(t, []opSummary{{models.OpRemoveFile, "stale"}}, summarize(plan))
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, "a/precious", plan.Warnings[0].Path)

	results := NewExecutor(src, dst, DefaultExecOptions(), nil, nil).Execute(ctx, plan)
	for _, r := range results {
		assert.Equal(t, models.OpSucceeded, r.Status, r.Error)
	}
	data, err := os.ReadFile(filepath.Join(tr.dst, "a", "precious"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestEngineSyncUnreadableSourceDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	tr := newTrees(t)
	tr.write(tr.src, "locked/precious", "data", time.Unix(100, 0))
	tr.write(tr.dst, "locked/precious", "data", time.Unix(100, 0))
	locked := filepath.Join(tr.src, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	report := runEngine(t, newOperation(tr.src, tr.dst, models.ModeSync))
	assert.Empty(t, report.Results)
	paths := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		paths = append(paths, w.Path)
	}
	assert.ElementsMatch(t, []string{"locked", "locked/precious"}, paths)

	_, err := os.Stat(filepath.Join(tr.dst, "locked", "precious"))
	assert.NoError(t, err)
}
