package chronos

import (
	"path"
	"strings"
	"time"

	"github.com/starford/chronos/internal/models"
)

// fakeGraph is an in-memory Graph. Backlinks are derived from links, and
// links may point at paths that have no note.
type fakeGraph struct {
	notes  map[string]models.Note
	caches map[string]*models.FileCache
	links  map[string]map[string]int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		notes:  map[string]models.Note{},
		caches: map[string]*models.FileCache{},
		links:  map[string]map[string]int{},
	}
}

// note adds a note with optional front matter tags.
func (g *fakeGraph) note(p string, fmTags any) models.Note {
	n := models.Note{
		Path:     p,
		Basename: strings.TrimSuffix(path.Base(p), ".md"),
		ModTime:  time.Unix(int64(len(g.notes)), 0),
	}
	g.notes[p] = n
	if fmTags != nil {
		g.caches[p] = &models.FileCache{Frontmatter: models.Frontmatter{"tags": fmTags}}
	}
	return n
}

func (g *fakeGraph) link(from string, to ...string) {
	if g.links[from] == nil {
		g.links[from] = map[string]int{}
	}
	for _, t := range to {
		g.links[from][t]++
	}
}

func (g *fakeGraph) FileCache(p string) *models.FileCache { return g.caches[p] }

func (g *fakeGraph) ResolvedLinks(p string) map[string]int { return g.links[p] }

func (g *fakeGraph) Backlinks(p string) map[string]int {
	out := map[string]int{}
	for src, targets := range g.links {
		if n, ok := targets[p]; ok {
			out[src] = n
		}
	}
	return out
}

func (g *fakeGraph) NoteByPath(p string) (models.Note, bool) {
	n, ok := g.notes[p]
	return n, ok
}

func (g *fakeGraph) MarkdownFiles() []models.Note {
	out := make([]models.Note, 0, len(g.notes))
	for _, n := range g.notes {
		out = append(out, n)
	}
	return out
}

var _ Vault = (*fakeGraph)(nil)
