package compare

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/index"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/storage"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func file(path string, size int64, mtime time.Time) models.Entry {
	return models.Entry{Path: path, Kind: models.KindFile, Size: size, ModTime: mtime, Mode: 0644}
}

func dir(path string) models.Entry {
	return models.Entry{Path: path, Kind: models.KindDir, Mode: fs.ModeDir | 0755}
}

func link(path, target string) models.Entry {
	return models.Entry{Path: path, Kind: models.KindSymlink, Mode: fs.ModeSymlink | 0777, LinkTarget: target}
}

func snapshot(entries ...models.Entry) *index.Snapshot {
	return index.FromWalk(slices.Values(entries), nil)
}

func diffMap(diffs []models.DiffEntry) map[string]models.DiffEntry {
	m := make(map[string]models.DiffEntry, len(diffs))
	for _, d := range diffs {
		m[d.Path] = d
	}
	return m
}

func TestDiffIdenticalTrees(t *testing.T) {
	src := snapshot(dir("a"), file("a/b.txt", 10, t0))
	dst := snapshot(dir("a"), file("a/b.txt", 10, t0))

	diffs, warnings := New(nil, nil, Options{}, nil).Diff(context.Background(), src, dst)
	assert.Empty(t, warnings)
	require.Len(t, diffs, 2)
	for _, d := range diffs {
		assert.Equal(t, models.Unchanged, d.Kind, d.Path)
	}
	assert.Empty(t, Changes(diffs))
}

func TestDiffClassification(t *testing.T) {
	perm := file("perm.txt", 1, t0)
	perm.Mode = 0600

	src := snapshot(
		dir("d"),
		file("d/new.txt", 3, t0),
		file("size.txt", 1, t0),
		file("time.txt", 1, t0.Add(time.Minute)),
		file("perm.txt", 1, t0),
		file("kind", 1, t0),
		link("lnk", "a"),
		dir("same"),
	)
	dst := snapshot(
		file("old.txt", 1, t0),
		file("size.txt", 2, t0),
		file("time.txt", 1, t0),
		perm,
		dir("kind"),
		link("lnk", "b"),
		dir("same"),
	)

	diffs, _ := New(nil, nil, Options{}, nil).Diff(context.Background(), src, dst)
	m := diffMap(diffs)

	assert.Equal(t, models.OnlyInSource, m["d"].Kind)
	assert.Equal(t, models.OnlyInSource, m["d/new.txt"].Kind)
	assert.Nil(t, m["d/new.txt"].Dest)
	assert.Equal(t, models.OnlyInDestination, m["old.txt"].Kind)
	assert.Nil(t, m["old.txt"].Source)

	assert.Equal(t, []models.ChangeReason{models.ReasonSize}, m["size.txt"].Reasons)
	assert.Equal(t, []models.ChangeReason{models.ReasonTimestamp}, m["time.txt"].Reasons)
	assert.Equal(t, []models.ChangeReason{models.ReasonPermissions}, m["perm.txt"].Reasons)
	assert.Equal(t, []models.ChangeReason{models.ReasonKind}, m["kind"].Reasons)
	assert.Equal(t, []models.ChangeReason{models.ReasonContent}, m["lnk"].Reasons)
	assert.Equal(t, models.Unchanged, m["same"].Kind)

	for _, p := range []string{"size.txt", "time.txt", "perm.txt", "kind", "lnk"} {
		assert.Equal(t, models.Changed, m[p].Kind, p)
	}
}

func TestDiffIsSorted(t *testing.T) {
	src := snapshot(file("b", 1, t0), dir("a"), file("a/x", 1, t0), file("a-b", 1, t0))
	dst := snapshot(file("a/y", 1, t0), file("c", 1, t0))

	diffs, _ := New(nil, nil, Options{}, nil).Diff(context.Background(), src, dst)
	var paths []string
	for _, d := range diffs {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"a", "a/x", "a/y", "a-b", "b", "c"}, paths)
}

func TestDiffTimeTolerance(t *testing.T) {
	src := snapshot(file("f", 1, t0))
	dst := snapshot(file("f", 1, t0.Add(-1500*time.Millisecond)))

	diffs, _ := New(nil, nil, Options{}, nil).Diff(context.Background(), src, dst)
	assert.Equal(t, models.Changed, diffs[0].Kind)

	diffs, _ = New(nil, nil, Options{TimeTolerance: 2 * time.Second}, nil).Diff(context.Background(), src, dst)
	assert.Equal(t, models.Unchanged, diffs[0].Kind)

	diffs, _ = New(nil, nil, Options{TimeTolerance: time.Second}, nil).Diff(context.Background(), src, dst)
	assert.Equal(t, models.Changed, diffs[0].Kind)
}

func TestDiffSymmetry(t *testing.T) {
	a := snapshot(
		dir("only-a"),
		file("shared", 5, t0),
		file("newer", 1, t0.Add(time.Hour)),
		file("kind", 1, t0),
	)
	b := snapshot(
		file("only-b", 1, t0),
		file("shared", 6, t0.Add(-time.Hour)),
		file("newer", 1, t0),
		dir("kind"),
	)

	c := New(nil, nil, Options{}, nil)
	ab, _ := c.Diff(context.Background(), a, b)
	ba, _ := c.Diff(context.Background(), b, a)
	require.Len(t, ba, len(ab))

	mba := diffMap(ba)
	for _, d := range ab {
		r := mba[d.Path]
		switch d.Kind {
		case models.OnlyInSource:
			assert.Equal(t, models.OnlyInDestination, r.Kind, d.Path)
		case models.OnlyInDestination:
			assert.Equal(t, models.OnlyInSource, r.Kind, d.Path)
		default:
			assert.Equal(t, d.Kind, r.Kind, d.Path)
			assert.Equal(t, d.Reasons, r.Reasons, d.Path)
		}
	}
}

// exactFixture writes the same relative files into two trees
type exactFixture struct {
	t        *testing.T
	src, dst string
}

func newExactFixture(t *testing.T) *exactFixture {
	base := t.TempDir()
	f := &exactFixture{t: t, src: filepath.Join(base, "src"), dst: filepath.Join(base, "dst")}
	require.NoError(t, os.MkdirAll(f.src, 0755))
	require.NoError(t, os.MkdirAll(f.dst, 0755))
	return f
}

func (f *exactFixture) write(root, rel string, data []byte, mtime time.Time) models.Entry {
	full := filepath.Join(root, rel)
	require.NoError(f.t, os.WriteFile(full, data, 0644))
	require.NoError(f.t, os.Chtimes(full, mtime, mtime))
	info, err := os.Stat(full)
	require.NoError(f.t, err)
	return models.Entry{Path: rel, Kind: models.KindFile, Size: info.Size(), ModTime: info.ModTime(), Mode: info.Mode()}
}

func (f *exactFixture) comparator(opts Options) *Comparator {
	src, err := storage.NewLocal(f.src)
	require.NoError(f.t, err)
	dst, err := storage.NewLocal(f.dst)
	require.NoError(f.t, err)
	opts.Exact = true
	return New(src, dst, opts, nil)
}

func TestDiffExactMode(t *testing.T) {
	f := newExactFixture(t)
	big := bytes.Repeat([]byte("x"), partialHashThreshold+10)
	bigTail := bytes.Clone(big)
	bigTail[len(bigTail)-1] = 'y'
	bigHead := bytes.Clone(big)
	bigHead[0] = 'y'

	src := snapshot(
		f.write(f.src, "same", []byte("abc"), t0),
		f.write(f.src, "touched", []byte("abc"), t0.Add(time.Hour)),
		f.write(f.src, "edited", []byte("abc"), t0),
		f.write(f.src, "big-tail", big, t0),
		f.write(f.src, "big-head", big, t0),
	)
	dst := snapshot(
		f.write(f.dst, "same", []byte("abc"), t0),
		f.write(f.dst, "touched", []byte("abc"), t0),
		f.write(f.dst, "edited", []byte("abd"), t0),
		f.write(f.dst, "big-tail", bigTail, t0),
		f.write(f.dst, "big-head", bigHead, t0),
	)

	diffs, warnings := f.comparator(Options{Concurrency: 2}).Diff(context.Background(), src, dst)
	assert.Empty(t, warnings)
	m := diffMap(diffs)

	assert.Equal(t, models.Unchanged, m["same"].Kind)

	touched := m["touched"]
	assert.Equal(t, []models.ChangeReason{models.ReasonTimestamp}, touched.Reasons)
	assert.True(t, touched.ContentVerified)
	assert.True(t, touched.MetadataOnly())

	assert.Equal(t, []models.ChangeReason{models.ReasonContent}, m["edited"].Reasons)
	assert.False(t, m["edited"].MetadataOnly())
	assert.NotEmpty(t, m["edited"].Source.Hash)
	assert.NotEqual(t, m["edited"].Source.Hash, m["edited"].Dest.Hash)

	assert.Equal(t, []models.ChangeReason{models.ReasonContent}, m["big-tail"].Reasons)
	assert.Equal(t, []models.ChangeReason{models.ReasonContent}, m["big-head"].Reasons)
	// rejected by the partial hash, no full digest
	assert.Empty(t, m["big-head"].Source.Hash)
}

func TestDiffExactModeUnreadable(t *testing.T) {
	f := newExactFixture(t)
	src := snapshot(f.write(f.src, "gone", []byte("abc"), t0))
	dst := snapshot(f.write(f.dst, "gone", []byte("abc"), t0))
	require.NoError(t, os.Remove(filepath.Join(f.src, "gone")))

	diffs, warnings := f.comparator(Options{}).Diff(context.Background(), src, dst)
	require.Len(t, warnings, 1)
	assert.Equal(t, rdterrors.CodeEntryVanished, warnings[0].Code)
	assert.Equal(t, "gone", warnings[0].Path)

	require.Len(t, diffs, 1)
	assert.Equal(t, models.Unchanged, diffs[0].Kind)
	assert.False(t, diffs[0].ContentVerified)
}

func TestHashComparatorHashReader(t *testing.T) {
	f := newExactFixture(t)
	f.write(f.src, "abc", []byte("abc"), t0)
	backend, err := storage.NewLocal(f.src)
	require.NoError(t, err)

	h := NewHashComparator(0)
	sum, err := h.hashReader(context.Background(), backend, "abc", -1)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
	assert.Equal(t, "sha256", h.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.hashReader(ctx, backend, "abc", -1)
	assert.Error(t, err)
}

func TestHashComparatorPartialDisabled(t *testing.T) {
	f := newExactFixture(t)
	big := bytes.Repeat([]byte("z"), partialHashThreshold)
	other := bytes.Clone(big)
	other[0] = 'a'
	f.write(f.src, "f", big, t0)
	f.write(f.dst, "f", other, t0)

	src, _ := storage.NewLocal(f.src)
	dst, _ := storage.NewLocal(f.dst)
	h := NewHashComparator(4096)
	h.enablePartialHash = false

	res, err := h.Compare(context.Background(), src, dst, "f", int64(len(big)))
	require.NoError(t, err)
	assert.False(t, res.Equal)
	assert.NotEmpty(t, res.SourceHash)
	assert.NotEmpty(t, res.DestHash)
}
