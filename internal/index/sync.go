package index

import (
	"log/slog"

	"github.com/starford/chronos/internal/models"
	"github.com/starford/chronos/internal/parser"
	"github.com/starford/chronos/internal/vault"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store vault.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	logger.Info("sync: done", slog.Int("notes", len(metas)))
	return nil
}

// IndexFile parses data and upserts it into the DB. meta supplies the path
// and modification time; its checksum is recomputed from data.
func IndexFile(db *DB, meta models.NoteMetadata, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	row := NoteRow{
		Path:        meta.Path,
		Title:       res.Title,
		Checksum:    vault.Checksum(data),
		Frontmatter: res.Frontmatter,
		Tags:        res.Tags,
		ModTime:     meta.ModTime,
	}
	return db.UpsertNote(row, res.Links)
}
