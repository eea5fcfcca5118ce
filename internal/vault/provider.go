// Package vault defines the Markdown vault file-system abstraction.
package vault

import (
	"io/fs"

	"github.com/starford/chronos/internal/models"
)

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Stat returns metadata for the single file at path.
	Stat(path string) (models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// FS exposes the vault as a read-only fs.FS rooted at the vault root.
	FS() fs.FS
}
