package ignore

import (
	"path"
	"strings"

	"github.com/sdejongh/rdt/internal/platform"
)

// Decision is the outcome of evaluating a path against a RuleSet
type Decision int

const (
	// Included paths are reported and, for directories, descended into
	Included Decision = iota
	// Excluded paths are skipped; excluded directories are pruned
	Excluded
)

func (d Decision) String() string {
	if d == Excluded {
		return "excluded"
	}
	return "included"
}

// RuleOptions tune decisions that are not expressed as patterns
type RuleOptions struct {
	// IncludeHidden disables the implicit exclusion of dotfiles
	IncludeHidden bool
}

// RuleSet is the immutable, ordered list of patterns active in one
// directory. Extending a RuleSet links a new node to its parent, so the
// cost is proportional to the rules of the new directory only.
type RuleSet struct {
	parent   *RuleSet
	patterns []*Pattern
	opts     RuleOptions
	size     int
}

// NewRootRuleSet builds the RuleSet for a tree root from global patterns.
// Invalid patterns are dropped and returned as errors.
func NewRootRuleSet(global []string, opts RuleOptions) (*RuleSet, []error) {
	var patterns []*Pattern
	var errs []error
	for _, text := range global {
		if skipLine(text) {
			continue
		}
		p, err := Compile(text, "", 0)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		patterns = append(patterns, p)
	}
	return &RuleSet{patterns: patterns, opts: opts, size: len(patterns)}, errs
}

// Extend returns a RuleSet for dir with the contents of one of its rule
// files appended. An empty file returns the receiver unchanged.
func (r *RuleSet) Extend(dir string, ruleFile []byte) (*RuleSet, []error) {
	if len(ruleFile) == 0 {
		return r, nil
	}
	patterns, errs := ParseRules(ruleFile, dir, dirDepth(dir))
	if len(patterns) == 0 {
		return r, errs
	}
	return &RuleSet{
		parent:   r,
		patterns: patterns,
		opts:     r.opts,
		size:     r.size + len(patterns),
	}, errs
}

// Decide evaluates a tree-relative path. The most recently appended
// matching pattern wins. Without a match, hidden names are excluded unless
// IncludeHidden is set.
func (r *RuleSet) Decide(relPath string, isDir bool) Decision {
	if p := r.Match(relPath, isDir); p != nil {
		if p.Polarity == Include {
			return Included
		}
		return Excluded
	}
	if !r.opts.IncludeHidden && platform.IsHidden(path.Base(relPath)) {
		return Excluded
	}
	return Included
}

// Match returns the deciding pattern for a path, or nil
func (r *RuleSet) Match(relPath string, isDir bool) *Pattern {
	for node := r; node != nil; node = node.parent {
		for i := len(node.patterns) - 1; i >= 0; i-- {
			if node.patterns[i].Match(relPath, isDir) {
				return node.patterns[i]
			}
		}
	}
	return nil
}

// Len returns the total number of patterns
func (r *RuleSet) Len() int {
	return r.size
}

// Options returns the options shared along the chain
func (r *RuleSet) Options() RuleOptions {
	return r.opts
}

// Patterns returns all patterns in root-to-leaf order
func (r *RuleSet) Patterns() []*Pattern {
	var chain []*RuleSet
	for node := r; node != nil; node = node.parent {
		chain = append(chain, node)
	}
	out := make([]*Pattern, 0, r.size)
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].patterns...)
	}
	return out
}

func dirDepth(dir string) int {
	if dir == "" {
		return 1
	}
	return strings.Count(dir, "/") + 2
}
