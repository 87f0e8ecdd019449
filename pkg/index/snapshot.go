package index

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
)

// Snapshot is the materialized walk of one tree, keyed by relative path.
// It is read-only once built.
type Snapshot struct {
	entries map[string]*models.Entry
	order   []string

	sortOnce sync.Once
	sorted   []*models.Entry
}

// Stats summarizes the contents of a snapshot
type Stats struct {
	models.ScanStats
	Entries int
}

// New returns an empty snapshot
func New() *Snapshot {
	return &Snapshot{entries: make(map[string]*models.Entry)}
}

// FromWalk collects a walk into a snapshot. A path reported twice keeps the
// last entry; the duplicate is logged.
func FromWalk(seq iter.Seq[models.Entry], logger logging.Logger) *Snapshot {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	s := New()
	for e := range seq {
		if !s.add(e) {
			logger.Error(context.Background(), "Duplicate path in walk", nil, logging.Fields{
				"path": e.Path,
			})
		}
	}
	return s
}

// add stores an entry and reports whether its path was new
func (s *Snapshot) add(e models.Entry) bool {
	entry := e
	_, dup := s.entries[e.Path]
	s.entries[e.Path] = &entry
	if !dup {
		s.order = append(s.order, e.Path)
	}
	return !dup
}

// Lookup returns the entry stored for a relative path
func (s *Snapshot) Lookup(path string) (*models.Entry, bool) {
	e, ok := s.entries[path]
	return e, ok
}

// Len returns the number of distinct paths
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Paths returns the paths in insertion (traversal) order
func (s *Snapshot) Paths() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted returns the entries ordered by ComparePaths. The slice is cached
// and must not be modified.
func (s *Snapshot) Sorted() []*models.Entry {
	s.sortOnce.Do(func() {
		s.sorted = make([]*models.Entry, 0, len(s.order))
		for _, p := range s.order {
			s.sorted = append(s.sorted, s.entries[p])
		}
		sort.Slice(s.sorted, func(i, j int) bool {
			return ComparePaths(s.sorted[i].Path, s.sorted[j].Path) < 0
		})
	})
	return s.sorted
}

// Stats counts files, directories and bytes
func (s *Snapshot) Stats() Stats {
	st := Stats{Entries: len(s.order)}
	for _, e := range s.entries {
		st.Add(e)
	}
	return st
}

// Warnings collects the warnings attached to entries, in path order
func (s *Snapshot) Warnings() []models.Warning {
	var out []models.Warning
	for _, e := range s.Sorted() {
		out = append(out, e.Warnings...)
	}
	return out
}

// ComparePaths orders slash paths so that every directory is immediately
// followed by its whole subtree: "/" sorts before any other byte.
func ComparePaths(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == '/' {
			return -1
		}
		if cb == '/' {
			return 1
		}
		if ca < cb {
			return -1
		}
		return 1
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
