package compare

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"golang.org/x/sync/errgroup"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/index"
	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/storage"
)

// Partial hashing configuration
const (
	// Minimum file size to enable partial hashing (1MB)
	partialHashThreshold = 1 * 1024 * 1024
	// Size of partial hash to compute (256KB)
	partialHashSize = 256 * 1024
)

// HashComparator compares file contents using SHA-256
type HashComparator struct {
	bufferSize        int
	bufferPool        *sync.Pool
	enablePartialHash bool // Enable partial hashing optimization
}

// NewHashComparator creates a new hash-based comparator
func NewHashComparator(bufferSize int) *HashComparator {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &HashComparator{
		bufferSize:        bufferSize,
		enablePartialHash: true, // Enabled by default
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// HashResult is the outcome of comparing one path on two backends
type HashResult struct {
	Equal      bool
	SourceHash string // empty when the partial hash already differed
	DestHash   string
}

// Compare hashes path on both backends. Files of size or more bytes first
// compare a partial hash of their head for quick rejection.
func (c *HashComparator) Compare(ctx context.Context, source, dest storage.Backend, path string, size int64) (HashResult, error) {
	if c.enablePartialHash && size >= partialHashThreshold {
		var sourcePartial, destPartial string
		var sourceErr, destErr error
		var wg sync.WaitGroup

		wg.Add(2)
		go func() {
			defer wg.Done()
			sourcePartial, sourceErr = c.hashReader(ctx, source, path, partialHashSize)
		}()
		go func() {
			defer wg.Done()
			destPartial, destErr = c.hashReader(ctx, dest, path, partialHashSize)
		}()
		wg.Wait()

		// Only use partial hash results if both succeeded
		if sourceErr == nil && destErr == nil && sourcePartial != destPartial {
			return HashResult{}, nil
		}
	}

	var res HashResult
	var sourceErr, destErr error
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		res.SourceHash, sourceErr = c.hashReader(ctx, source, path, -1)
	}()
	go func() {
		defer wg.Done()
		res.DestHash, destErr = c.hashReader(ctx, dest, path, -1)
	}()
	wg.Wait()

	if sourceErr != nil {
		return HashResult{}, rdterrors.Wrap(sourceErr, classify(sourceErr), path, "failed to hash source")
	}
	if destErr != nil {
		return HashResult{}, rdterrors.Wrap(destErr, classify(destErr), path, "failed to hash destination")
	}

	res.Equal = res.SourceHash == res.DestHash
	return res, nil
}

// hashReader hashes at most limit bytes of a file, or all of it when limit
// is negative
func (c *HashComparator) hashReader(ctx context.Context, backend storage.Backend, path string, limit int64) (string, error) {
	reader, err := backend.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	var src io.Reader = reader
	if limit >= 0 {
		src = io.LimitReader(reader, limit)
	}

	hasher := sha256.New()

	// Get buffer from pool
	bufPtr := c.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer c.bufferPool.Put(bufPtr)

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := src.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// Name returns the comparator name
func (c *HashComparator) Name() string {
	return "sha256"
}

type contentVerdict struct {
	equal bool
}

// hashPass hashes every file present on both sides with equal sizes. Files
// that cannot be read are reported as warnings and left unverified.
func (c *Comparator) hashPass(ctx context.Context, src []*models.Entry, dst *index.Snapshot) (map[string]contentVerdict, []models.Warning) {
	type job struct {
		src, dst *models.Entry
	}
	var jobs []job
	for _, s := range src {
		if s.Kind != models.KindFile {
			continue
		}
		if d, ok := dst.Lookup(s.Path); ok && d.Kind == models.KindFile && d.Size == s.Size {
			jobs = append(jobs, job{src: s, dst: d})
		}
	}

	verdicts := make(map[string]contentVerdict, len(jobs))
	var warnings []models.Warning
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, jb := range jobs {
		g.Go(func() error {
			res, err := c.hasher.Compare(gctx, c.source, c.dest, jb.src.Path, jb.src.Size)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn(gctx, "Cannot hash file", logging.Fields{"path": jb.src.Path, "error": err.Error()})
				mu.Lock()
				warnings = append(warnings, models.NewWarning(jb.src.Path, err))
				mu.Unlock()
				return nil
			}

			// each entry belongs to exactly one job
			jb.src.Hash = res.SourceHash
			jb.dst.Hash = res.DestHash

			mu.Lock()
			verdicts[jb.src.Path] = contentVerdict{equal: res.Equal}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug(ctx, "Hash pass interrupted", logging.Fields{"error": err.Error()})
	}

	c.logger.Debug(ctx, "Hash pass complete", logging.Fields{
		"algorithm": c.hasher.Name(),
		"files":     len(jobs),
		"warnings":  len(warnings),
	})
	return verdicts, warnings
}

func classify(err error) rdterrors.ErrorCode {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return rdterrors.CodePermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return rdterrors.CodeEntryVanished
	default:
		return rdterrors.CodeIO
	}
}
