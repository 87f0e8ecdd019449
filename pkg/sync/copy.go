package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/sdejongh/rdt/internal/platform"
	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/ratelimit"
)

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

const tempPrefix = ".rdt-tmp-"

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		if pr.onProgress != nil {
			// Report on a byte or time threshold, and always on the last read
			if pr.read-pr.lastReported >= progressReportBytes ||
				time.Since(pr.lastReportTime) >= progressReportInterval ||
				err != nil {
				pr.onProgress(pr.read)
				pr.lastReported = pr.read
				pr.lastReportTime = time.Now()
			}
		}
	}
	return n, err
}

// copyFile reproduces a source file or symlink at the destination
func (e *Executor) copyFile(ctx context.Context, op models.Operation, onProgress func(int64)) (int64, error) {
	if op.Source.Kind == models.KindSymlink {
		return 0, e.copySymlink(ctx, op)
	}

	reader, err := e.source.Open(ctx, op.Path)
	if err != nil {
		return 0, sourceError(err, op.Path, "cannot open source")
	}
	defer reader.Close()

	info, err := reader.Stat()
	if err != nil {
		return 0, sourceError(err, op.Path, "cannot stat source")
	}
	if !info.Mode().IsRegular() {
		return 0, rdterrors.New(rdterrors.CodeSourceVanished, op.Path, "source is no longer a regular file")
	}

	if err := e.checkReplaceable(ctx, op.Path); err != nil {
		return 0, err
	}

	tmp, tmpName, err := e.dest.CreateTemp(ctx, platform.ParentRel(op.Path), tempPrefix)
	if err != nil {
		return 0, destError(err, op.Path, "cannot create temporary file")
	}

	pr := &progressReader{
		reader:         ratelimit.NewReader(ctx, reader, e.limiter),
		lastReportTime: time.Now(),
		onProgress:     onProgress,
	}
	buf := make([]byte, e.opts.BufferSize)
	written, err := io.CopyBuffer(tmp, pr, buf)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = e.dest.Remove(ctx, tmpName)
		return written, destError(err, op.Path, "copy failed")
	}

	if err := e.dest.Rename(ctx, tmpName, op.Path); err != nil {
		_ = e.dest.Remove(ctx, tmpName)
		return written, destError(err, op.Path, "cannot move file into place")
	}
	return written, e.applyMetadata(ctx, op.Path, info)
}

func (e *Executor) copySymlink(ctx context.Context, op models.Operation) error {
	target, err := e.source.Readlink(ctx, op.Path)
	if err != nil {
		return sourceError(err, op.Path, "cannot read symlink")
	}
	if err := e.checkReplaceable(ctx, op.Path); err != nil {
		return err
	}
	if err := e.dest.Remove(ctx, op.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return destError(err, op.Path, "cannot replace destination")
	}
	if err := e.dest.Symlink(ctx, target, op.Path); err != nil {
		return destError(err, op.Path, "cannot create symlink")
	}
	return nil
}

// checkReplaceable rejects a destination directory standing where a file
// or symlink is about to be written
func (e *Executor) checkReplaceable(ctx context.Context, path string) error {
	info, err := e.dest.Lstat(ctx, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return destError(err, path, "cannot inspect destination")
	case info.IsDir():
		return rdterrors.New(rdterrors.CodeDestinationConflict, path, "destination is a directory")
	}
	return nil
}

func (e *Executor) createDirectory(ctx context.Context, op models.Operation) error {
	info, err := e.dest.Lstat(ctx, op.Path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return rdterrors.New(rdterrors.CodeDestinationConflict, op.Path, "destination exists and is not a directory")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return destError(err, op.Path, "cannot inspect destination")
	}

	perm := fs.FileMode(0o755)
	if op.Source != nil {
		perm = op.Source.Perm()
	}
	perm |= 0o700
	if err := e.dest.MkdirAll(ctx, op.Path, perm); err != nil {
		return destError(err, op.Path, "cannot create directory")
	}
	// MkdirAll does not honor perm
	if err := e.dest.Chmod(ctx, op.Path, perm); err != nil {
		return destError(err, op.Path, "cannot set permissions")
	}
	return nil
}

func (e *Executor) removeFile(ctx context.Context, op models.Operation) error {
	if err := e.dest.Remove(ctx, op.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return destError(err, op.Path, "cannot remove")
	}
	return nil
}

func (e *Executor) removeDirectory(ctx context.Context, op models.Operation) error {
	if err := e.dest.RemoveAll(ctx, op.Path); err != nil {
		return destError(err, op.Path, "cannot remove directory")
	}
	return nil
}

func (e *Executor) updateMetadata(ctx context.Context, op models.Operation) error {
	info, err := e.source.Stat(ctx, op.Path)
	if err != nil {
		return sourceError(err, op.Path, "cannot stat source")
	}
	return e.applyMetadata(ctx, op.Path, info)
}

// applyMetadata copies permission bits and modification time
func (e *Executor) applyMetadata(ctx context.Context, path string, info fs.FileInfo) error {
	if err := e.dest.Chmod(ctx, path, info.Mode().Perm()); err != nil {
		return destError(err, path, "cannot set permissions")
	}
	mtime := info.ModTime()
	if err := e.dest.Chtimes(ctx, path, mtime, mtime); err != nil {
		return destError(err, path, "cannot set modification time")
	}
	return nil
}

// sourceError classifies a failure reading the source tree
func sourceError(err error, path, msg string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return rdterrors.Wrap(err, rdterrors.CodeSourceVanished, path, msg)
	}
	return destError(err, path, msg)
}

// destError classifies a filesystem failure
func destError(err error, path, msg string) error {
	var coded *rdterrors.Error
	if errors.As(err, &coded) {
		return err
	}
	code := rdterrors.CodeIO
	switch {
	case errors.Is(err, fs.ErrPermission):
		code = rdterrors.CodePermissionDenied
	case platform.IsDiskFull(err):
		code = rdterrors.CodeDiskFull
	case platform.IsNotDir(err), errors.Is(err, fs.ErrExist):
		code = rdterrors.CodeDestinationConflict
	}
	return rdterrors.Wrap(err, code, path, msg)
}

func describe(op models.Operation) string {
	return fmt.Sprintf("%s %s", op.Kind, op.Path)
}
