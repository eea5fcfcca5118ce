package index

import "github.com/starford/chronos/internal/models"

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, links []models.LinkOccurrence) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	ListNotes() ([]models.Note, error)
	OutboundLinks(source string) ([]models.LinkOccurrence, error)
	Resolve(source, target string) (string, bool, error)
	ResolvedLinks(source string) (map[string]int, error)
	Backlinks(target string) (map[string]int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
