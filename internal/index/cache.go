package index

import (
	"log/slog"

	"github.com/starford/chronos/internal/chronos"
	"github.com/starford/chronos/internal/models"
)

// Cache exposes the index as a chronos.Vault. Lookups never fail: database
// errors are logged and reported as missing data.
type Cache struct {
	db     NoteIndex
	logger *slog.Logger
}

// NewCache wraps db.
func NewCache(db NoteIndex, logger *slog.Logger) *Cache {
	return &Cache{db: db, logger: logger}
}

var _ chronos.Vault = (*Cache)(nil)

func (c *Cache) warn(op, path string, err error) {
	c.logger.Warn("cache: "+op+" failed", slog.String("path", path), slog.String("error", err.Error()))
}

// FileCache returns the indexed metadata of path, or nil.
func (c *Cache) FileCache(path string) *models.FileCache {
	row, err := c.db.GetNote(path)
	if err != nil {
		c.warn("file cache", path, err)
		return nil
	}
	if row == nil {
		return nil
	}
	links, err := c.db.OutboundLinks(path)
	if err != nil {
		c.warn("file cache links", path, err)
	}
	return &models.FileCache{Tags: row.Tags, Frontmatter: row.Frontmatter, Links: links}
}

// ResolvedLinks returns the notes path links to.
func (c *Cache) ResolvedLinks(path string) map[string]int {
	out, err := c.db.ResolvedLinks(path)
	if err != nil {
		c.warn("resolved links", path, err)
		return map[string]int{}
	}
	return out
}

// Backlinks returns the notes linking to path.
func (c *Cache) Backlinks(path string) map[string]int {
	out, err := c.db.Backlinks(path)
	if err != nil {
		c.warn("backlinks", path, err)
		return map[string]int{}
	}
	return out
}

// NoteByPath returns the handle of an indexed note.
func (c *Cache) NoteByPath(path string) (models.Note, bool) {
	row, err := c.db.GetNote(path)
	if err != nil {
		c.warn("note by path", path, err)
		return models.Note{}, false
	}
	if row == nil {
		return models.Note{}, false
	}
	return row.Note(), true
}

// MarkdownFiles returns every indexed note.
func (c *Cache) MarkdownFiles() []models.Note {
	notes, err := c.db.ListNotes()
	if err != nil {
		c.warn("list notes", "", err)
		return nil
	}
	return notes
}
