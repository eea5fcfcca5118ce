package chronos

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/chronos/internal/models"
)

// memTransactor keeps front matter per path in memory and can be told to
// reject transactions.
type memTransactor struct {
	fm     map[string]models.Frontmatter
	reject error
	calls  int
}

func (m *memTransactor) ProcessFrontMatter(_ context.Context, note models.Note, fn func(models.Frontmatter) error) error {
	m.calls++
	if m.reject != nil {
		return m.reject
	}
	cur := models.Frontmatter{}
	for k, v := range m.fm[note.Path] {
		cur[k] = v
	}
	if err := fn(cur); err != nil {
		return err
	}
	m.fm[note.Path] = cur
	return nil
}

func TestLinkText(t *testing.T) {
	assert.Equal(t, "[[Child]]", LinkText(models.Note{Path: "dir/Child.md", Basename: "Child"}))
}

func TestLink_InitialisesAndIsIdempotent(t *testing.T) {
	tx := &memTransactor{fm: map[string]models.Frontmatter{}}
	l := NewParentLinker(tx, "")
	parent := models.Note{Path: "P.md", Basename: "P"}
	child := models.Note{Path: "C.md", Basename: "C"}

	require.NoError(t, l.Link(context.Background(), parent, child))
	require.NoError(t, l.Link(context.Background(), parent, child))

	assert.Equal(t, []any{"[[C]]"}, tx.fm["P.md"][DefaultParentField])
	assert.Equal(t, 2, tx.calls)
}

func TestLink_AppendsToExistingList(t *testing.T) {
	tx := &memTransactor{fm: map[string]models.Frontmatter{
		"P.md": {"children": []any{"[[A]]"}, "tags": "MOC"},
	}}
	l := NewParentLinker(tx, "children")
	err := l.Link(context.Background(), models.Note{Path: "P.md"}, models.Note{Path: "B.md", Basename: "B"})
	require.NoError(t, err)
	assert.Equal(t, []any{"[[A]]", "[[B]]"}, tx.fm["P.md"]["children"])
	assert.Equal(t, "MOC", tx.fm["P.md"]["tags"])
}

func TestLink_ScalarFieldBecomesList(t *testing.T) {
	tx := &memTransactor{fm: map[string]models.Frontmatter{"P.md": {DefaultParentField: "[[A]]"}}}
	l := NewParentLinker(tx, "")

	require.NoError(t, l.Link(context.Background(), models.Note{Path: "P.md"}, models.Note{Basename: "A"}))
	assert.Equal(t, "[[A]]", tx.fm["P.md"][DefaultParentField])

	require.NoError(t, l.Link(context.Background(), models.Note{Path: "P.md"}, models.Note{Basename: "B"}))
	assert.Equal(t, []any{"[[A]]", "[[B]]"}, tx.fm["P.md"][DefaultParentField])
}

func TestLink_MalformedFieldRejected(t *testing.T) {
	tx := &memTransactor{fm: map[string]models.Frontmatter{"P.md": {DefaultParentField: 42}}}
	err := NewParentLinker(tx, "").Link(context.Background(), models.Note{Path: "P.md"}, models.Note{Basename: "C"})
	assert.ErrorIs(t, err, ErrMalformedField)
	assert.Equal(t, 42, tx.fm["P.md"][DefaultParentField])
}

func TestLink_TransactionFailureSurfaced(t *testing.T) {
	rejected := errors.New("rejected")
	tx := &memTransactor{fm: map[string]models.Frontmatter{}, reject: rejected}
	err := NewParentLinker(tx, "").Link(context.Background(), models.Note{Path: "P.md"}, models.Note{Basename: "C"})
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, tx.calls)
}

func TestLinkAll_JoinsFailures(t *testing.T) {
	tx := &memTransactor{fm: map[string]models.Frontmatter{"Bad.md": {DefaultParentField: true}}}
	l := NewParentLinker(tx, "")
	parents := []models.Note{{Path: "Bad.md"}, {Path: "Good.md"}}

	linked, err := l.LinkAll(context.Background(), parents, models.Note{Path: "C.md", Basename: "C"})
	assert.ErrorIs(t, err, ErrMalformedField)
	assert.Equal(t, []models.Note{{Path: "Good.md"}}, linked)
	assert.Equal(t, []any{"[[C]]"}, tx.fm["Good.md"][DefaultParentField])
}

func TestTimeline(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := []models.Note{
		{Path: "b.md", ModTime: t0.Add(time.Hour)},
		{Path: "a.md", ModTime: t0},
		{Path: "c.md", ModTime: t0.Add(time.Hour)},
	}
	paths := func(ns []models.Note) []string {
		out := make([]string, len(ns))
		for i, n := range ns {
			out[i] = n.Path
		}
		return out
	}
	assert.Equal(t, []string{"b.md", "c.md", "a.md"}, paths(Timeline(notes, Newest)))
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, paths(Timeline(notes, Oldest)))
	assert.Equal(t, "b.md", notes[0].Path, "input must not be reordered")
	assert.Equal(t, Oldest, ParseOrder("oldest"))
	assert.Equal(t, Newest, ParseOrder("bogus"))
}

func TestChildCount(t *testing.T) {
	assert.Equal(t, 0, ChildCount(nil, ""))
	assert.Equal(t, 1, ChildCount(&models.FileCache{Frontmatter: models.Frontmatter{"parent_of": "[[A]]"}}, ""))
	assert.Equal(t, 2, ChildCount(&models.FileCache{Frontmatter: models.Frontmatter{"kids": []any{"[[A]]", "[[B]]"}}}, "kids"))
	assert.Equal(t, 0, ChildCount(&models.FileCache{Frontmatter: models.Frontmatter{"parent_of": 7}}, ""))
}

func TestFolderChildCount(t *testing.T) {
	fsys := fstest.MapFS{
		"top/a.md":          {Data: []byte("a")},
		"top/sub/b.md":      {Data: []byte("b")},
		"top/sub/deep/c.md": {Data: []byte("c")},
		"other/x.md":        {Data: []byte("x")},
	}
	// a.md, sub, b.md, deep, c.md
	n, err := FolderChildCount(fsys, "top")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = FolderChildCount(fsys, "missing")
	assert.Error(t, err)
}
