package walk

import (
	"context"
	"iter"

	"github.com/sdejongh/rdt/pkg/models"
)

// Result summarizes a finished walk
type Result struct {
	Entries  int64
	Dirs     int64
	Excluded int64
	Warnings []models.Warning

	// Incomplete lists, sorted, the paths whose contents could not be
	// listed. Their subtrees are missing from the walk.
	Incomplete []string
}

// Stream is the lazy output of one walk. It is consumed once.
type Stream struct {
	entries chan models.Entry
	done    chan struct{}
	cancel  context.CancelFunc

	result *Result
	err    error
}

// Entries returns the channel of walked entries. It is closed when the walk
// completes or is cancelled.
func (s *Stream) Entries() <-chan models.Entry {
	return s.entries
}

// All returns the entries as an iterator. Stopping early cancels the walk.
func (s *Stream) All() iter.Seq[models.Entry] {
	return func(yield func(models.Entry) bool) {
		for e := range s.entries {
			if !yield(e) {
				s.Stop()
				return
			}
		}
	}
}

// Stop cancels the walk and discards the remaining entries
func (s *Stream) Stop() {
	s.cancel()
	for range s.entries {
	}
}

// Wait blocks until the walk is done. The error is non-nil only when the
// walk was cancelled, in which case the result is partial.
func (s *Stream) Wait() (*Result, error) {
	<-s.done
	return s.result, s.err
}
