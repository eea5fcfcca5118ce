// Package chronos ranks candidate parent (Map-of-Content) notes for a note
// and records parent → child links in front matter.
//
// Everything here works on a read-only snapshot of the vault exposed through
// Graph. Missing metadata and unresolved paths are never errors: they simply
// contribute nothing.
package chronos

import "github.com/starford/chronos/internal/models"

// Graph is the read-only view of the vault's metadata cache.
type Graph interface {
	// FileCache returns the indexed metadata of path, or nil if not indexed.
	FileCache(path string) *models.FileCache
	// ResolvedLinks maps each note path that path links to onto the link count.
	ResolvedLinks(path string) map[string]int
	// Backlinks maps each note path linking to path onto the link count.
	Backlinks(path string) map[string]int
	// NoteByPath resolves a path to a note handle.
	NoteByPath(path string) (models.Note, bool)
}

// Vault is a Graph that can also enumerate its notes.
type Vault interface {
	Graph
	// MarkdownFiles returns every note in the vault.
	MarkdownFiles() []models.Note
}

// Set is an unordered set of strings.
type Set map[string]struct{}

// Add inserts s.
func (s Set) Add(v string) { s[v] = struct{}{} }

// Has reports whether v is in s.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}
