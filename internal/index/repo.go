package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/chronos/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path        string
	Title       string
	Checksum    string
	Frontmatter models.Frontmatter
	Tags        []models.TagOccurrence
	ModTime     time.Time
}

// Note returns the note handle for the row.
func (r *NoteRow) Note() models.Note {
	return models.Note{Path: r.Path, Basename: Basename(r.Path), ModTime: r.ModTime}
}

// Basename returns the file name of p without its .md extension.
func Basename(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}

// UpsertNote inserts or replaces a note and its outbound links within a transaction.
func (db *DB) UpsertNote(n NoteRow, links []models.LinkOccurrence) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	fmJSON, err := json.Marshal(n.Frontmatter)
	if err != nil {
		return fmt.Errorf("index: encode frontmatter of %s: %w", n.Path, err)
	}
	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (path, basename, title, checksum, frontmatter, tags, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			basename    = excluded.basename,
			title       = excluded.title,
			checksum    = excluded.checksum,
			frontmatter = excluded.frontmatter,
			tags        = excluded.tags,
			mtime       = excluded.mtime
	`, n.Path, Basename(n.Path), n.Title, n.Checksum, string(fmJSON), string(tagsJSON), n.ModTime)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO links (source, target, count) VALUES (?, ?, ?)
			ON CONFLICT(source, target) DO UPDATE SET count = count + excluded.count
		`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(n.Path, l.Target, l.Count); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note and its outgoing links.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, path); err != nil {
		return fmt.Errorf("index: delete links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetNote returns the indexed row for path, or nil if it is not indexed.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var (
		r              NoteRow
		fmJSON, tagsJS string
	)
	err := db.conn.QueryRow(`
		SELECT path, title, checksum, frontmatter, tags, mtime FROM notes WHERE path = ?
	`, path).Scan(&r.Path, &r.Title, &r.Checksum, &fmJSON, &tagsJS, &r.ModTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	if err := json.Unmarshal([]byte(fmJSON), &r.Frontmatter); err != nil {
		return nil, fmt.Errorf("index: decode frontmatter of %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(tagsJS), &r.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags of %s: %w", path, err)
	}
	return &r, nil
}

// ListNotes returns a handle for every indexed note, ordered by path.
func (db *DB) ListNotes() ([]models.Note, error) {
	rows, err := db.conn.Query(`SELECT path, mtime FROM notes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.Path, &n.ModTime); err != nil {
			return nil, err
		}
		n.Basename = Basename(n.Path)
		out = append(out, n)
	}
	return out, rows.Err()
}

// OutboundLinks returns the raw link targets of source with their counts.
func (db *DB) OutboundLinks(source string) ([]models.LinkOccurrence, error) {
	rows, err := db.conn.Query(`SELECT target, count FROM links WHERE source = ? ORDER BY target`, source)
	if err != nil {
		return nil, fmt.Errorf("index: outbound links: %w", err)
	}
	defer rows.Close()

	var out []models.LinkOccurrence
	for rows.Next() {
		var l models.LinkOccurrence
		if err := rows.Scan(&l.Target, &l.Count); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// linkRow is a raw (source, target) edge.
type linkRow struct {
	source string
	target string
	count  int
}

// linksMentioning returns every raw link whose target text contains needle,
// case-insensitively. It narrows the set of edges that may resolve to a note.
func (db *DB) linksMentioning(needle string) ([]linkRow, error) {
	rows, err := db.conn.Query(`
		SELECT source, target, count FROM links WHERE instr(lower(target), ?) > 0
	`, strings.ToLower(needle))
	if err != nil {
		return nil, fmt.Errorf("index: links mentioning: %w", err)
	}
	defer rows.Close()

	var out []linkRow
	for rows.Next() {
		var l linkRow
		if err := rows.Scan(&l.source, &l.target, &l.count); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
