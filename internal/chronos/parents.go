package chronos

import (
	"sort"

	"github.com/starford/chronos/internal/models"
)

// Default tags marking a note as a parent candidate. Matching is exact and
// case-sensitive.
const (
	TagMOC    = "MOC"
	TagFolder = "folder"
)

// Candidate is a possible parent note and how many of the source's
// neighbors lead to it.
type Candidate struct {
	Note  models.Note `json:"note"`
	Count int         `json:"count"`
}

// Scorer ranks candidate parents by walking a note's two-hop neighborhood.
type Scorer struct {
	graph      Graph
	parentTags []string
}

// NewScorer returns a Scorer over g. With no tags given, notes tagged
// TagMOC or TagFolder are candidates.
func NewScorer(g Graph, parentTags ...string) *Scorer {
	if len(parentTags) == 0 {
		parentTags = []string{TagMOC, TagFolder}
	}
	return &Scorer{graph: g, parentTags: parentTags}
}

func (s *Scorer) isParent(tags Set) bool {
	for _, t := range s.parentTags {
		if tags.Has(t) {
			return true
		}
	}
	return false
}

// Candidates maps candidate parent paths of source onto their score. For
// every one-hop neighbor n of source, each parent-tagged note in n's own
// neighborhood (excluding n and source) gains one point, so a candidate
// reached through k distinct neighbors scores k. Notes never seen tagged
// have no entry.
func (s *Scorer) Candidates(source models.Note) map[string]Candidate {
	out := make(map[string]Candidate)
	for n := range Neighbors(s.graph, source.Path) {
		for p := range SecondHop(s.graph, source.Path, n) {
			note, ok := s.graph.NoteByPath(p)
			if !ok {
				continue
			}
			if !s.isParent(Tags(s.graph.FileCache(p))) {
				continue
			}
			c, seen := out[p]
			if !seen {
				c = Candidate{Note: note}
			}
			c.Count++
			out[p] = c
		}
	}
	return out
}

// Rank orders candidates by descending count, then by path.
func Rank(candidates map[string]Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Note.Path < out[j].Note.Path
	})
	return out
}
