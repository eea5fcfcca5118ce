package index

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Resolve maps a raw link target written in source onto an indexed note path.
//
// Resolution follows the usual vault rules: "./" and "../" targets are
// relative to source's folder; otherwise the target is tried as a vault path
// (with or without .md), then as a bare note name or trailing path segment,
// in which case the shortest matching path wins. Matching is case-insensitive.
func (db *DB) Resolve(source, target string) (string, bool, error) {
	t := strings.TrimSpace(target)
	switch {
	case t == "":
		return "", false, nil
	case strings.HasPrefix(t, "./") || strings.HasPrefix(t, "../"):
		t = path.Join(path.Dir(source), t)
		if t == ".." || strings.HasPrefix(t, "../") {
			return "", false, nil
		}
	default:
		t = strings.TrimPrefix(path.Clean("/"+t), "/")
	}

	lower := strings.ToLower(t)
	p, err := db.firstPath(`
		SELECT path FROM notes WHERE lower(path) = ? OR lower(path) = ?
		ORDER BY length(path), path LIMIT 1
	`, lower, lower+".md")
	if p != "" || err != nil {
		return p, p != "", err
	}

	name := strings.TrimSuffix(t, ".md")
	if !strings.Contains(name, "/") {
		p, err = db.firstPath(`
			SELECT path FROM notes WHERE basename = ? COLLATE NOCASE
			ORDER BY length(path), path LIMIT 1
		`, name)
		return p, p != "", err
	}

	p, err = db.firstPath(`
		SELECT path FROM notes WHERE lower(path) LIKE ? ESCAPE '\'
		ORDER BY length(path), path LIMIT 1
	`, "%/"+escapeLike(strings.ToLower(name))+".md")
	return p, p != "", err
}

func (db *DB) firstPath(query string, args ...any) (string, error) {
	var p string
	err := db.conn.QueryRow(query, args...).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: resolve: %w", err)
	}
	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ResolvedLinks maps every note that source links to onto the number of
// links. Targets with no matching note are left out.
func (db *DB) ResolvedLinks(source string) (map[string]int, error) {
	raw, err := db.OutboundLinks(source)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw))
	for _, l := range raw {
		p, ok, err := db.Resolve(source, l.Target)
		if err != nil {
			return nil, err
		}
		if ok {
			out[p] += l.Count
		}
	}
	return out, nil
}

// Backlinks maps every note linking to target onto the number of links.
func (db *DB) Backlinks(target string) (map[string]int, error) {
	raw, err := db.linksMentioning(Basename(target))
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, l := range raw {
		p, ok, err := db.Resolve(l.source, l.target)
		if err != nil {
			return nil, err
		}
		if ok && p == target {
			out[l.source] += l.count
		}
	}
	return out, nil
}
