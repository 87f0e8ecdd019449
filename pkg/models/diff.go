package models

// DiffKind classifies one path across a source and destination tree
type DiffKind string

const (
	// OnlyInSource means the path exists in the source only
	OnlyInSource DiffKind = "only_in_source"
	// OnlyInDestination means the path exists in the destination only
	OnlyInDestination DiffKind = "only_in_destination"
	// Changed means both sides exist but differ
	Changed DiffKind = "changed"
	// Unchanged means both sides exist and compare equal
	Unchanged DiffKind = "unchanged"
)

// ChangeReason explains why a path is Changed
type ChangeReason string

const (
	// ReasonSize indicates different file sizes
	ReasonSize ChangeReason = "size"
	// ReasonTimestamp indicates modification times outside the tolerance
	ReasonTimestamp ChangeReason = "timestamp"
	// ReasonKind indicates different object types
	ReasonKind ChangeReason = "kind"
	// ReasonPermissions indicates different permission bits
	ReasonPermissions ChangeReason = "permissions"
	// ReasonContent indicates different content hashes or symlink targets
	ReasonContent ChangeReason = "content"
)

// DiffEntry is the comparison outcome for one relative path
type DiffEntry struct {
	Kind DiffKind
	Path string

	// Source and Dest are nil on the side where the path is missing
	Source *Entry
	Dest   *Entry

	// Reasons is set for Changed entries, in a fixed order
	Reasons []ChangeReason

	// ContentVerified is true when exact comparison proved equal content
	ContentVerified bool
}

// HasReason reports whether the entry changed for the given reason
func (d DiffEntry) HasReason(reason ChangeReason) bool {
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// MetadataOnly reports whether the destination content is already right
// and only permissions or timestamps need fixing
func (d DiffEntry) MetadataOnly() bool {
	if d.Kind != Changed {
		return false
	}
	for _, r := range d.Reasons {
		switch r {
		case ReasonPermissions:
		case ReasonTimestamp:
			if !d.ContentVerified {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Symbol returns the one-character marker used in listings
func (d DiffEntry) Symbol() string {
	switch d.Kind {
	case OnlyInSource:
		return "+"
	case OnlyInDestination:
		return "-"
	case Changed:
		return "x"
	default:
		return " "
	}
}
