package walk

import (
	"context"
	"errors"
	"io/fs"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sdejongh/rdt/internal/platform"
	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/ignore"
	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/storage"
)

// Options configures a walk
type Options struct {
	// Concurrency is the number of directory workers
	Concurrency int

	// QueueSize bounds the directory work queue
	QueueSize int

	// FollowSymlinks reports symlink targets and descends into linked
	// directories
	FollowSymlinks bool

	// NoIgnore disables reading rule files
	NoIgnore bool

	// RuleFiles are the rule file names looked up in each directory
	RuleFiles []string
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Concurrency: runtime.GOMAXPROCS(0),
		QueueSize:   1024,
		RuleFiles:   ignore.DefaultRuleFiles,
	}
}

const entryBuffer = 256

// Walker performs parallel, rule-aware traversals of one tree
type Walker struct {
	backend storage.Backend
	opts    Options
	logger  logging.Logger
}

// New creates a walker over backend
func New(backend storage.Backend, opts Options, logger logging.Logger) *Walker {
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1024
	}
	if opts.RuleFiles == nil {
		opts.RuleFiles = ignore.DefaultRuleFiles
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Walker{backend: backend, opts: opts, logger: logger}
}

type workItem struct {
	dir   string
	rules *ignore.RuleSet

	// listed is set when infos and listErr already hold the listing
	listed  bool
	infos   []fs.FileInfo
	listErr error
}

// walkState is shared by the workers of one walk
type walkState struct {
	queue   chan workItem
	pending sync.WaitGroup
	out     chan models.Entry
	visited *visitedSet

	entries  atomic.Int64
	dirs     atomic.Int64
	excluded atomic.Int64

	warningsMu sync.Mutex
	warnings   []models.Warning
	incomplete []string
}

func (s *walkState) warn(w models.Warning) {
	s.warningsMu.Lock()
	s.warnings = append(s.warnings, w)
	s.warningsMu.Unlock()
}

// markIncomplete records a path whose subtree is missing from the walk
func (s *walkState) markIncomplete(rel string) {
	s.warningsMu.Lock()
	s.incomplete = append(s.incomplete, rel)
	s.warningsMu.Unlock()
}

// Walk validates the root and starts the traversal. A root that is missing,
// unreadable or not a directory fails with ROOT_UNREADABLE before any entry
// is produced.
func (w *Walker) Walk(ctx context.Context, rules *ignore.RuleSet) (*Stream, error) {
	root := w.backend.Root()

	info, err := w.backend.Stat(ctx, "")
	if err != nil {
		return nil, rdterrors.Wrap(err, rdterrors.CodeRootUnreadable, root, "cannot access root")
	}
	if !info.IsDir() {
		return nil, rdterrors.New(rdterrors.CodeRootUnreadable, root, "not a directory")
	}
	infos, listErr := w.backend.ReadDir(ctx, "")
	var partial *storage.PartialListError
	if listErr != nil && !errors.As(listErr, &partial) {
		return nil, rdterrors.Wrap(listErr, rdterrors.CodeRootUnreadable, root, "cannot list root")
	}
	if rules == nil {
		rules, _ = ignore.NewRootRuleSet(nil, ignore.RuleOptions{})
	}

	ctx, cancel := context.WithCancel(ctx)
	stream := &Stream{
		entries: make(chan models.Entry, entryBuffer),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	state := &walkState{
		queue:   make(chan workItem, w.opts.QueueSize),
		out:     stream.entries,
		visited: newVisitedSet(),
	}
	if w.opts.FollowSymlinks {
		state.visited.claim(info)
	}

	w.logger.Debug(ctx, "Starting walk", logging.Fields{
		"root":        root,
		"concurrency": w.opts.Concurrency,
		"follow":      w.opts.FollowSymlinks,
	})

	state.pending.Add(1)
	state.queue <- workItem{dir: "", rules: rules, listed: true, infos: infos, listErr: listErr}

	var workersWg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		workersWg.Add(1)
		go func() {
			defer workersWg.Done()
			for item := range state.queue {
				w.processDir(ctx, state, item)
				state.pending.Done()
			}
		}()
	}

	go func() {
		state.pending.Wait()
		close(state.queue)
	}()

	go func() {
		workersWg.Wait()
		close(stream.entries)

		sort.Strings(state.incomplete)
		stream.result = &Result{
			Entries:    state.entries.Load(),
			Dirs:       state.dirs.Load(),
			Excluded:   state.excluded.Load(),
			Warnings:   state.warnings,
			Incomplete: state.incomplete,
		}
		stream.err = ctx.Err()
		cancel()

		w.logger.Debug(ctx, "Walk finished", logging.Fields{
			"root":     root,
			"entries":  stream.result.Entries,
			"excluded": stream.result.Excluded,
			"warnings": len(stream.result.Warnings),
		})
		close(stream.done)
	}()

	return stream, nil
}

// processDir lists one directory, emits its non-excluded children in name
// order and schedules its non-excluded subdirectories
func (w *Walker) processDir(ctx context.Context, state *walkState, item workItem) {
	if ctx.Err() != nil {
		return
	}

	infos, err := item.infos, item.listErr
	if !item.listed {
		infos, err = w.backend.ReadDir(ctx, item.dir)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var partial *storage.PartialListError
		if !errors.As(err, &partial) {
			w.record(ctx, state, item.dir, err)
			state.markIncomplete(item.dir)
			return
		}
		for _, failed := range partial.Failed {
			rel := platform.JoinRel(item.dir, failed.Name)
			w.record(ctx, state, rel, failed.Err)
			if !errors.Is(failed.Err, fs.ErrNotExist) {
				state.markIncomplete(rel)
			}
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	rules := w.extendRules(ctx, state, item, infos)

	var subdirs []string
	for _, info := range infos {
		rel := platform.JoinRel(item.dir, info.Name())

		c := w.makeEntry(ctx, state, rel, info)
		if rules.Decide(rel, c.entry.Kind == models.KindDir) == ignore.Excluded {
			state.excluded.Add(1)
			continue
		}
		descend := c.dirInfo != nil
		if descend && w.opts.FollowSymlinks && !state.visited.claim(c.dirInfo) && c.viaLink {
			w.cycle(ctx, state, &c.entry)
			descend = false
		}

		select {
		case state.out <- c.entry:
		case <-ctx.Done():
			return
		}
		state.entries.Add(1)
		if c.entry.Kind == models.KindDir {
			state.dirs.Add(1)
		}
		if descend {
			subdirs = append(subdirs, rel)
		}
	}

	for _, dir := range subdirs {
		state.pending.Add(1)
		next := workItem{dir: dir, rules: rules}
		select {
		case state.queue <- next:
		default:
			// queue full: descend on this worker
			w.processDir(ctx, state, next)
			state.pending.Done()
		}
	}
}

// extendRules reads the rule files present in a directory listing
func (w *Walker) extendRules(ctx context.Context, state *walkState, item workItem, infos []fs.FileInfo) *ignore.RuleSet {
	rules := item.rules
	if w.opts.NoIgnore {
		return rules
	}

	present := make(map[string]bool, len(w.opts.RuleFiles))
	for _, info := range infos {
		if !info.IsDir() {
			present[info.Name()] = true
		}
	}

	for _, name := range w.opts.RuleFiles {
		if !present[name] {
			continue
		}
		rulePath := platform.JoinRel(item.dir, name)
		data, err := w.backend.ReadFile(ctx, rulePath)
		if err != nil {
			w.record(ctx, state, rulePath, err)
			// Entries below dir are decided without these rules
			state.markIncomplete(item.dir)
			continue
		}

		var errs []error
		rules, errs = rules.Extend(item.dir, data)
		for _, err := range errs {
			warning := models.NewWarning(rulePath, err)
			state.warn(warning)
			w.logger.Warn(ctx, "Invalid rule", logging.Fields{"path": rulePath, "error": err.Error()})
		}
	}
	return rules
}

// candidate is a listed child before its rule decision
type candidate struct {
	entry models.Entry

	// dirInfo is set when the walker may descend into the entry
	dirInfo fs.FileInfo

	// viaLink is set when dirInfo was reached through a symlink
	viaLink bool
}

// makeEntry converts a listing item into an Entry
func (w *Walker) makeEntry(ctx context.Context, state *walkState, rel string, info fs.FileInfo) candidate {
	c := candidate{entry: models.Entry{
		Path:    rel,
		Kind:    models.KindFromMode(info.Mode()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}}

	switch c.entry.Kind {
	case models.KindDir:
		c.entry.Size = 0
		c.dirInfo = info

	case models.KindSymlink:
		target, err := w.backend.Readlink(ctx, rel)
		if err != nil {
			c.entry.Warnings = append(c.entry.Warnings, w.record(ctx, state, rel, err))
			return c
		}
		c.entry.LinkTarget = target
		if w.opts.FollowSymlinks {
			w.follow(ctx, &c)
		}
	}

	return c
}

// follow resolves a symlink candidate to its target. Dangling links stay
// symlinks.
func (w *Walker) follow(ctx context.Context, c *candidate) {
	info, err := w.backend.Stat(ctx, c.entry.Path)
	if err != nil {
		w.logger.Debug(ctx, "Cannot resolve symlink", logging.Fields{"path": c.entry.Path, "error": err.Error()})
		return
	}

	c.entry.Kind = models.KindFromMode(info.Mode())
	c.entry.Size = info.Size()
	c.entry.ModTime = info.ModTime()
	c.entry.Mode = info.Mode()
	c.entry.LinkTarget = ""

	if c.entry.Kind == models.KindDir {
		c.entry.Size = 0
		c.dirInfo = info
		c.viaLink = true
	}
}

// cycle flags a followed symlink whose target directory was already entered
func (w *Walker) cycle(ctx context.Context, state *walkState, entry *models.Entry) {
	warning := models.Warning{
		Path:    entry.Path,
		Code:    rdterrors.CodeSymlinkCycle,
		Message: "symlink leads to an already visited directory",
	}
	entry.Warnings = append(entry.Warnings, warning)
	state.warn(warning)
	w.logger.Warn(ctx, "Symlink cycle", logging.Fields{"path": entry.Path})
}

// record stores a per-entry I/O problem as a warning
func (w *Walker) record(ctx context.Context, state *walkState, rel string, err error) models.Warning {
	code := classify(err)
	warning := models.Warning{Path: rel, Code: code, Message: err.Error()}
	state.warn(warning)
	w.logger.Warn(ctx, "Walk warning", logging.Fields{
		"path":  rel,
		"code":  string(code),
		"error": err.Error(),
	})
	return warning
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
