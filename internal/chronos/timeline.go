package chronos

import (
	"sort"

	"github.com/starford/chronos/internal/models"
)

// Order selects the direction of a timeline.
type Order string

const (
	Newest Order = "newest"
	Oldest Order = "oldest"
)

// ParseOrder maps a user-supplied string onto an Order, defaulting to Newest.
func ParseOrder(s string) Order {
	if Order(s) == Oldest {
		return Oldest
	}
	return Newest
}

// Timeline returns a copy of notes sorted by modification time. Ties are
// broken by path so the result is stable.
func Timeline(notes []models.Note, order Order) []models.Note {
	out := make([]models.Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ModTime.Equal(b.ModTime) {
			if order == Oldest {
				return a.ModTime.Before(b.ModTime)
			}
			return a.ModTime.After(b.ModTime)
		}
		return a.Path < b.Path
	})
	return out
}
