package compare

import (
	"context"
	"runtime"
	"time"

	"github.com/sdejongh/rdt/pkg/index"
	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/storage"
)

// Options configures a comparison
type Options struct {
	// TimeTolerance is the largest modification time difference still
	// considered equal
	TimeTolerance time.Duration

	// Exact hashes equal-sized files to detect content changes
	Exact bool

	// Concurrency bounds the number of files hashed at once
	Concurrency int

	// BufferSize is the read buffer used for hashing
	BufferSize int
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Concurrency: runtime.GOMAXPROCS(0),
		BufferSize:  64 * 1024,
	}
}

// Comparator computes the differences between two snapshots
type Comparator struct {
	source storage.Backend
	dest   storage.Backend
	opts   Options
	hasher *HashComparator
	logger logging.Logger
}

// New creates a comparator. The backends are only read in exact mode.
func New(source, dest storage.Backend, opts Options, logger logging.Logger) *Comparator {
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Comparator{
		source: source,
		dest:   dest,
		opts:   opts,
		hasher: NewHashComparator(opts.BufferSize),
		logger: logger,
	}
}

// Diff merges the sorted paths of both snapshots and classifies each one.
// The result is ordered by index.ComparePaths and includes Unchanged paths.
func (c *Comparator) Diff(ctx context.Context, src, dst *index.Snapshot) ([]models.DiffEntry, []models.Warning) {
	a, b := src.Sorted(), dst.Sorted()

	var verdicts map[string]contentVerdict
	var warnings []models.Warning
	if c.opts.Exact {
		verdicts, warnings = c.hashPass(ctx, a, dst)
	}

	diffs := make([]models.DiffEntry, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var cmp int
		switch {
		case i == len(a):
			cmp = 1
		case j == len(b):
			cmp = -1
		default:
			cmp = index.ComparePaths(a[i].Path, b[j].Path)
		}

		switch {
		case cmp < 0:
			diffs = append(diffs, models.DiffEntry{Kind: models.OnlyInSource, Path: a[i].Path, Source: a[i]})
			i++
		case cmp > 0:
			diffs = append(diffs, models.DiffEntry{Kind: models.OnlyInDestination, Path: b[j].Path, Dest: b[j]})
			j++
		default:
			diffs = append(diffs, c.compareEntries(a[i], b[j], verdicts))
			i++
			j++
		}
	}

	c.logger.Debug(ctx, "Comparison complete", logging.Fields{
		"source_entries": len(a),
		"dest_entries":   len(b),
		"exact":          c.opts.Exact,
	})

	return diffs, warnings
}

// Changes filters out Unchanged entries
func Changes(diffs []models.DiffEntry) []models.DiffEntry {
	out := make([]models.DiffEntry, 0, len(diffs))
	for _, d := range diffs {
		if d.Kind != models.Unchanged {
			out = append(out, d)
		}
	}
	return out
}
