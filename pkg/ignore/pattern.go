// Package ignore implements gitignore-style include/exclude rules with
// closest-rule-wins precedence across nested rule files.
package ignore

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
)

// Polarity tells whether a matching pattern includes or excludes a path
type Polarity int

const (
	// Exclude is the polarity of a plain pattern
	Exclude Polarity = iota
	// Include is the polarity of a negated ("!") pattern
	Include
)

func (p Polarity) String() string {
	if p == Include {
		return "include"
	}
	return "exclude"
}

// Pattern is one compiled rule line
type Pattern struct {
	// Text is the rule as written
	Text string

	// Base is the slash path of the directory the rule was defined in,
	// "" for the tree root and for global rules
	Base string

	// Depth is the directory level the rule was defined at, 0 for global rules
	Depth int

	Polarity Polarity
	DirOnly  bool
	Anchored bool

	glob string

	// inside is the glob a trailing "/**" descends from. The pattern
	// matches below it, never the directory itself.
	inside string
}

// Compile parses a single rule. Comment and blank lines must be filtered
// out by the caller.
func Compile(text, base string, depth int) (*Pattern, error) {
	p := &Pattern{Text: text, Base: base, Depth: depth}

	expr := trimTrailingSpaces(text)
	switch {
	case strings.HasPrefix(expr, "!"):
		p.Polarity = Include
		expr = expr[1:]
	case strings.HasPrefix(expr, `\!`), strings.HasPrefix(expr, `\#`):
		expr = expr[1:]
	}

	if expr == "" {
		return nil, invalid(text, "empty pattern")
	}
	if trailingBackslashes(expr)%2 == 1 {
		return nil, invalid(text, "trailing unescaped backslash")
	}

	if strings.HasSuffix(expr, "/") {
		p.DirOnly = true
		expr = expr[:len(expr)-1]
		if strings.HasSuffix(expr, "/") {
			return nil, invalid(text, "repeated trailing separator")
		}
	}

	if strings.HasPrefix(expr, "/") {
		p.Anchored = true
		expr = expr[1:]
	} else if strings.Contains(expr, "/") {
		p.Anchored = true
	}
	if expr == "" {
		return nil, invalid(text, "pattern matches nothing")
	}

	expr = escapeBraces(expr)
	if !p.Anchored {
		expr = "**/" + expr
	}
	if !doublestar.ValidatePattern(expr) {
		return nil, invalid(text, "malformed glob")
	}
	p.glob = expr
	if p.Anchored && expr != "**" && strings.HasSuffix(expr, "/**") {
		p.inside = strings.TrimSuffix(expr, "/**")
	}

	return p, nil
}

// Match reports whether the pattern applies to a tree-relative path
func (p *Pattern) Match(path string, isDir bool) bool {
	if p.DirOnly && !isDir {
		return false
	}

	rel := path
	if p.Base != "" {
		if !strings.HasPrefix(path, p.Base+"/") {
			return false
		}
		rel = path[len(p.Base)+1:]
	}
	if rel == "" {
		return false
	}

	if p.inside != "" {
		if ok, _ := doublestar.Match(p.inside, rel); ok {
			return false
		}
	}
	ok, err := doublestar.Match(p.glob, rel)
	return err == nil && ok
}

func (p *Pattern) String() string {
	return p.Text
}

func invalid(text, reason string) error {
	return rdterrors.Newf(rdterrors.CodeInvalidPattern, "", "%q: %s", text, reason)
}

// trimTrailingSpaces drops trailing spaces unless escaped with a backslash
func trimTrailingSpaces(s string) string {
	for strings.HasSuffix(s, " ") {
		trimmed := s[:len(s)-1]
		if trailingBackslashes(trimmed)%2 == 1 {
			break
		}
		s = trimmed
	}
	return s
}

func trailingBackslashes(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n
}

// escapeBraces makes { and } literal, doublestar would read them as
// alternation
func escapeBraces(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && (r == '{' || r == '}') {
			b.WriteByte('\\')
		}
		escaped = !escaped && r == '\\'
		b.WriteRune(r)
	}
	return b.String()
}
