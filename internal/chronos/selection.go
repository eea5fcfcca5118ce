package chronos

import (
	"strings"

	"github.com/starford/chronos/internal/models"
)

// Choices builds the list offered when picking parents: ranked candidates
// first, then every other note with count 0. query filters both groups by
// case-insensitive substring of the path; an empty query keeps everything.
func Choices(ranked []Candidate, all []models.Note, query string) []Candidate {
	q := strings.ToLower(query)
	match := func(p string) bool { return strings.Contains(strings.ToLower(p), q) }

	out := make([]Candidate, 0, len(all))
	seen := make(Set, len(ranked))
	for _, c := range ranked {
		seen.Add(c.Note.Path)
		if match(c.Note.Path) {
			out = append(out, c)
		}
	}
	for _, n := range all {
		if seen.Has(n.Path) || !match(n.Path) {
			continue
		}
		out = append(out, Candidate{Note: n})
	}
	return out
}
