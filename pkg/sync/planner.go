package sync

import (
	"github.com/sdejongh/rdt/internal/platform"
	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/models"
)

// PlanOptions configures planning
type PlanOptions struct {
	// Delete removes destination paths absent from the source
	Delete bool

	// Incomplete are paths whose listing failed in either tree. Nothing
	// at or below them is removed.
	Incomplete []string
}

// DefaultPlanOptions returns the options used by sync
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{Delete: true}
}

// planner accumulates operations while walking the sorted diff
type planner struct {
	opts PlanOptions
	plan *models.Plan

	// created maps a directory path to the ID of the operation creating it
	created map[string]int

	// removed is the most recent directory removed recursively. Sorted
	// input keeps its subtree contiguous, so one path is enough.
	removed    string
	hasRemoved bool

	// kept is the most recent removal withheld below an incomplete path
	kept    string
	hasKept bool
}

// Plan turns a diff ordered by index.ComparePaths into an operation plan.
// Prerequisites always precede their dependents and Operations[i].ID is i.
func Plan(diffs []models.DiffEntry, opts PlanOptions) *models.Plan {
	p := &planner{
		opts:    opts,
		plan:    &models.Plan{},
		created: make(map[string]int),
	}
	for i := range diffs {
		p.add(&diffs[i])
	}
	return p.plan
}

func (p *planner) add(d *models.DiffEntry) {
	if p.hasRemoved && d.Source == nil && platform.IsWithin(d.Path, p.removed) {
		return
	}

	switch d.Kind {
	case models.OnlyInSource:
		p.create(d.Source)

	case models.OnlyInDestination:
		if !p.opts.Delete {
			return
		}
		if dir, ok := p.incomplete(d.Path); ok {
			p.keep(d.Path, dir)
			return
		}
		p.remove(d.Dest)

	case models.Changed:
		switch {
		case d.HasReason(models.ReasonKind):
			if d.Source.Kind == models.KindOther {
				p.unsupported(d.Source)
				return
			}
			rm := p.remove(d.Dest)
			p.createAfter(d.Source, rm)
		case d.MetadataOnly():
			p.emit(models.OpUpdateMetadata, d.Path, d.Source, d.Dest)
		default:
			p.emit(models.OpCopyFile, d.Path, d.Source, d.Dest)
		}
	}
}

// create emits the operation reproducing a source-only entry
func (p *planner) create(src *models.Entry) int {
	return p.createAfter(src, -1)
}

func (p *planner) createAfter(src *models.Entry, prereq int) int {
	var id int
	switch src.Kind {
	case models.KindDir:
		id = p.emit(models.OpCreateDirectory, src.Path, src, nil, prereq)
		p.created[src.Path] = id
	case models.KindFile, models.KindSymlink:
		id = p.emit(models.OpCopyFile, src.Path, src, nil, prereq)
	default:
		p.unsupported(src)
		return -1
	}
	return id
}

// remove emits the removal of a destination entry
func (p *planner) remove(dst *models.Entry) int {
	if dst.Kind == models.KindDir {
		p.removed, p.hasRemoved = dst.Path, true
		return p.emit(models.OpRemoveDirectoryRecursive, dst.Path, nil, dst)
	}
	return p.emit(models.OpRemoveFile, dst.Path, nil, dst)
}

// incomplete returns the incomplete path holding path, if any
func (p *planner) incomplete(path string) (string, bool) {
	for _, dir := range p.opts.Incomplete {
		if platform.IsWithin(path, dir) {
			return dir, true
		}
	}
	return "", false
}

// keep withholds a removal, warning once per withheld subtree
func (p *planner) keep(path, dir string) {
	if p.hasKept && platform.IsWithin(path, p.kept) {
		return
	}
	p.kept, p.hasKept = path, true
	p.plan.Warnings = append(p.plan.Warnings, models.Warning{
		Path:    path,
		Code:    rdterrors.CodeIO,
		Message: "deletion skipped: " + displayPath(dir) + " could not be fully listed",
	})
}

func displayPath(rel string) string {
	if rel == "" {
		return "tree root"
	}
	return rel
}

func (p *planner) unsupported(src *models.Entry) {
	p.plan.Warnings = append(p.plan.Warnings,
		models.NewWarning(src.Path, rdterrors.New(rdterrors.CodeUnsupportedType, src.Path, "special files are not copied")))
}

// emit appends an operation. It depends on the given prerequisites and on
// the creation of its parent directory when that is part of the plan.
func (p *planner) emit(kind models.OperationKind, path string, src, dst *models.Entry, prereqs ...int) int {
	op := models.Operation{
		ID:     len(p.plan.Operations),
		Kind:   kind,
		Path:   path,
		Source: src,
		Dest:   dst,
	}
	if id, ok := p.created[platform.ParentRel(path)]; ok && path != "" {
		op.DependsOn = append(op.DependsOn, id)
	}
	for _, id := range prereqs {
		if id >= 0 {
			op.DependsOn = append(op.DependsOn, id)
		}
	}
	p.plan.Operations = append(p.plan.Operations, op)
	return op.ID
}
