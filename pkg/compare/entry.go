package compare

import (
	"github.com/sdejongh/rdt/pkg/models"
)

// compareEntries classifies a path present on both sides. Every check is
// symmetric so swapping the arguments yields the same reasons.
func (c *Comparator) compareEntries(src, dst *models.Entry, verdicts map[string]contentVerdict) models.DiffEntry {
	d := models.DiffEntry{Path: src.Path, Source: src, Dest: dst}

	if src.Kind != dst.Kind {
		d.Reasons = []models.ChangeReason{models.ReasonKind}
	} else {
		switch src.Kind {
		case models.KindFile:
			d.Reasons, d.ContentVerified = c.compareFiles(src, dst, verdicts)
		case models.KindSymlink:
			if src.LinkTarget != dst.LinkTarget {
				d.Reasons = []models.ChangeReason{models.ReasonContent}
			}
		}
	}

	if len(d.Reasons) > 0 {
		d.Kind = models.Changed
	} else {
		d.Kind = models.Unchanged
	}
	return d
}

func (c *Comparator) compareFiles(src, dst *models.Entry, verdicts map[string]contentVerdict) ([]models.ChangeReason, bool) {
	var reasons []models.ChangeReason

	if src.Size != dst.Size {
		reasons = append(reasons, models.ReasonSize)
	}

	delta := src.ModTime.Sub(dst.ModTime)
	if delta < 0 {
		delta = -delta
	}
	if delta > c.opts.TimeTolerance {
		reasons = append(reasons, models.ReasonTimestamp)
	}

	if src.Perm() != dst.Perm() {
		reasons = append(reasons, models.ReasonPermissions)
	}

	verified := false
	if v, ok := verdicts[src.Path]; ok {
		if v.equal {
			verified = true
		} else {
			reasons = append(reasons, models.ReasonContent)
		}
	}
	return reasons, verified
}
