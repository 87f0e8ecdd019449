package walk

import (
	"io/fs"
	"sync"

	"github.com/sdejongh/rdt/internal/platform"
)

// visitedSet records directories already entered in follow mode
type visitedSet struct {
	mu   sync.Mutex
	seen map[platform.FileKey]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[platform.FileKey]struct{})}
}

// claim marks the directory behind info as visited. It returns false when
// the directory was already claimed. Objects without a file identity are
// always claimable.
func (v *visitedSet) claim(info fs.FileInfo) bool {
	key, ok := platform.FileID(info)
	if !ok {
		return true
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, dup := v.seen[key]; dup {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

func (v *visitedSet) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
