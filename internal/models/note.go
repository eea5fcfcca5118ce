// Package models defines the domain types for Chronos.
package models

import "time"

// Note is a handle to a Markdown file in the vault.
type Note struct {
	Path     string    `json:"path"`
	Basename string    `json:"basename"`
	ModTime  time.Time `json:"mtime"`
}

// NoteMetadata is a lightweight representation returned by vault listings.
type NoteMetadata struct {
	Path     string    `json:"path"`
	Checksum string    `json:"checksum"`
	ModTime  time.Time `json:"mtime"`
}

// Frontmatter is the decoded YAML block at the head of a note.
type Frontmatter map[string]any

// TagOccurrence is one inline tag found in a note body. Tag keeps the
// leading "#" as written.
type TagOccurrence struct {
	Tag  string `json:"tag"`
	Line int    `json:"line"`
}

// LinkOccurrence is an outbound link target and how often it appears.
type LinkOccurrence struct {
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// FileCache is the indexed metadata of a note. A nil field means the note
// has no such section; a nil *FileCache means the note is not indexed.
type FileCache struct {
	Tags        []TagOccurrence  `json:"tags,omitempty"`
	Frontmatter Frontmatter      `json:"frontmatter,omitempty"`
	Links       []LinkOccurrence `json:"links,omitempty"`
}
