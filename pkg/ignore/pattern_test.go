package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
)

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		base    string
		path    string
		isDir   bool
		want    bool
	}{
		{"BasenameAtRoot", "*.log", "", "a.log", false, true},
		{"BasenameDeep", "*.log", "", "x/y/a.log", false, true},
		{"StarNoSuffixMatch", "*.log", "", "a.logx", false, false},
		{"StarDoesNotCrossSeparator", "doc/*.md", "", "doc/sub/a.md", false, false},
		{"InnerSlashAnchors", "doc/*.md", "", "x/doc/a.md", false, false},
		{"InnerSlashMatch", "doc/*.md", "", "doc/a.md", false, true},
		{"LeadingSlashAnchors", "/root.txt", "", "sub/root.txt", false, false},
		{"LeadingSlashMatch", "/root.txt", "", "root.txt", false, true},
		{"DirOnlyMatchesDir", "build/", "", "src/build", true, true},
		{"DirOnlySkipsFile", "build/", "", "build", false, false},
		{"DoubleStarPrefix", "**/tmp", "", "a/b/tmp", true, true},
		{"DoubleStarPrefixTop", "**/tmp", "", "tmp", true, true},
		{"DoubleStarMiddle", "a/**/b", "", "a/x/y/b", false, true},
		{"DoubleStarMiddleZero", "a/**/b", "", "a/b", false, true},
		{"EscapedBang", `\!bang`, "", "!bang", false, true},
		{"EscapedHash", `\#hash`, "", "#hash", false, true},
		{"BracesAreLiteral", "file{1,2}", "", "file{1,2}", false, true},
		{"BracesNoAlternation", "file{1,2}", "", "file1", false, false},
		{"TrailingSpacesTrimmed", "trail   ", "", "trail", false, true},
		{"EscapedTrailingSpace", `trail\ `, "", "trail ", false, true},
		{"CharClass", "[ab].txt", "", "b.txt", false, true},
		{"BaseRelative", "*.txt", "sub", "sub/x/a.txt", false, true},
		{"BaseOutside", "*.txt", "sub", "a.txt", false, false},
		{"BaseSiblingPrefix", "*.txt", "sub", "subx/a.txt", false, false},
		{"BaseAnchored", "/only", "sub", "sub/only", false, true},
		{"BaseAnchoredDeep", "/only", "sub", "sub/x/only", false, false},
		{"HiddenNameMatched", "*", "", ".env", false, true},
		{"TrailingDoubleStarSkipsDir", "build/**", "", "build", true, false},
		{"TrailingDoubleStarInside", "build/**", "", "build/keep", false, true},
		{"TrailingDoubleStarDeep", "build/**", "", "build/a/b", true, true},
		{"TrailingDoubleStarWildcardDir", "*/**", "", "top", true, false},
		{"TrailingDoubleStarBase", "out/**", "sub", "sub/out", true, false},
		{"TrailingDoubleStarBaseInside", "out/**", "sub", "sub/out/x", false, true},
		{"LoneDoubleStar", "**", "", "any/thing", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern, tt.base, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.path, tt.isDir))
		})
	}
}

func mustCompile(text, base string, depth int) *Pattern {
	p, err := Compile(text, base, depth)
	if err != nil {
		panic(err)
	}
	return p
}

func TestPatternFlags(t *testing.T) {
	p := mustCompile("!/keep/", "", 1)
	assert.Equal(t, Include, p.Polarity)
	assert.True(t, p.Anchored)
	assert.True(t, p.DirOnly)
	assert.Equal(t, "!/keep/", p.String())

	p = mustCompile("plain", "a/b", 3)
	assert.Equal(t, Exclude, p.Polarity)
	assert.False(t, p.Anchored)
	assert.False(t, p.DirOnly)
	assert.Equal(t, "a/b", p.Base)
	assert.Equal(t, 3, p.Depth)
}

func TestCompileInvalid(t *testing.T) {
	for _, text := range []string{"", "   ", "!", "/", "[abc", "[]", `foo\`, "foo//"} {
		t.Run(text, func(t *testing.T) {
			_, err := Compile(text, "", 0)
			require.Error(t, err)
			assert.True(t, rdterrors.HasCode(err, rdterrors.CodeInvalidPattern))
		})
	}
}
