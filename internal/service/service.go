// Package service coordinates the vault, the index and the parent-linking
// core behind the operations exposed by the HTTP API, MCP server and CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/chronos/internal/apperr"
	"github.com/starford/chronos/internal/chronos"
	"github.com/starford/chronos/internal/frontmatter"
	"github.com/starford/chronos/internal/index"
	"github.com/starford/chronos/internal/models"
	"github.com/starford/chronos/internal/vault"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Basename    string         `json:"basename"`
	Title       string         `json:"title"`
	ModTime     time.Time      `json:"mtime"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Neighbors   []string       `json:"neighbors"`
	Children    int            `json:"children"`
	// FolderChildren is set when a folder named after the note exists next to it.
	FolderChildren *int `json:"folder_children,omitempty"`
}

// LinkFunc is notified for every parent a child was recorded under.
type LinkFunc func(parent, child models.Note)

// Service coordinates vault, index and core operations.
type Service struct {
	store    vault.Provider
	db       *index.DB
	cache    *index.Cache
	scorer   *chronos.Scorer
	linker   *chronos.ParentLinker
	logger   *slog.Logger
	field    string
	tags     []string
	onLink   LinkFunc
}

// Option configures a Service.
type Option func(*Service)

// WithParentField sets the front matter field holding a parent's children.
func WithParentField(field string) Option {
	return func(s *Service) { s.field = field }
}

// WithParentTags sets the tags that mark a note as a parent candidate.
func WithParentTags(tags ...string) Option {
	return func(s *Service) { s.tags = tags }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOnLink registers a callback run after each successful parent link.
func WithOnLink(fn LinkFunc) Option {
	return func(s *Service) { s.onLink = fn }
}

// NewService creates a service over store and its index db.
func NewService(store vault.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default(), field: chronos.DefaultParentField}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = index.NewCache(db, s.logger)
	s.scorer = chronos.NewScorer(s.cache, s.tags...)

	proc := frontmatter.NewProcessor(store,
		frontmatter.WithLogger(s.logger),
		frontmatter.WithAfterWrite(s.reindex),
	)
	s.linker = chronos.NewParentLinker(proc, s.field)
	return s
}

// reindex refreshes the index entry of a note the service just wrote, so
// reads issued right after a write see it without waiting for the watcher.
func (s *Service) reindex(p string, data []byte) error {
	meta, err := s.store.Stat(p)
	if err != nil {
		return err
	}
	return index.IndexFile(s.db, meta, data)
}

// NotePath normalises a user-supplied note reference into a vault path:
// slashes are cleaned, a leading slash is dropped and .md is appended when
// missing.
func NotePath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(p)), "/")
	if p != "" && !strings.HasSuffix(p, ".md") {
		p += ".md"
	}
	return p
}

func (s *Service) note(p string) (models.Note, error) {
	n, ok := s.cache.NoteByPath(NotePath(p))
	if !ok {
		return models.Note{}, fmt.Errorf("note %q: %w", p, apperr.ErrNotFound)
	}
	return n, nil
}

// Timeline returns notes ordered by modification time, at most limit of
// them when limit is positive.
func (s *Service) Timeline(ctx context.Context, order chronos.Order, limit int) ([]models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notes, err := s.db.ListNotes()
	if err != nil {
		return nil, err
	}
	out := chronos.Timeline(notes, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetNote returns a note with its tags, neighbors and child counts.
func (s *Service) GetNote(ctx context.Context, p string) (*NoteDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := s.db.GetNote(NotePath(p))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("note %q: %w", p, apperr.ErrNotFound)
	}

	cache := s.cache.FileCache(row.Path)
	d := &NoteDetail{
		Path:        row.Path,
		Basename:    index.Basename(row.Path),
		Title:       row.Title,
		ModTime:     row.ModTime,
		Tags:        sortedSet(chronos.Tags(cache)),
		Frontmatter: row.Frontmatter,
		Neighbors:   sortedSet(chronos.Neighbors(s.cache, row.Path)),
		Children:    chronos.ChildCount(cache, s.field),
	}

	dir := strings.TrimSuffix(row.Path, ".md")
	if info, err := fs.Stat(s.store.FS(), dir); err == nil && info.IsDir() {
		n, err := chronos.FolderChildCount(s.store.FS(), dir)
		if err != nil {
			s.logger.Warn("service: folder count failed", slog.String("path", dir), slog.String("error", err.Error()))
		} else {
			d.FolderChildren = &n
		}
	}
	return d, nil
}

// Neighbors returns the notes directly linked with p in either direction,
// ordered by path.
func (s *Service) Neighbors(ctx context.Context, p string) ([]models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.note(p)
	if err != nil {
		return nil, err
	}
	var out []models.Note
	for _, np := range sortedSet(chronos.Neighbors(s.cache, n.Path)) {
		if nb, ok := s.cache.NoteByPath(np); ok {
			out = append(out, nb)
		}
	}
	return nonNilSlice(out), nil
}

// SuggestParents returns ranked parent candidates for p.
func (s *Service) SuggestParents(ctx context.Context, p string) ([]chronos.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.note(p)
	if err != nil {
		return nil, err
	}
	return chronos.Rank(s.scorer.Candidates(n)), nil
}

// Choices returns the parent picker list for p: ranked candidates first,
// then every other note, filtered by query.
func (s *Service) Choices(ctx context.Context, p, query string) ([]chronos.Candidate, error) {
	ranked, err := s.SuggestParents(ctx, p)
	if err != nil {
		return nil, err
	}
	self := NotePath(p)
	var all []models.Note
	for _, n := range s.cache.MarkdownFiles() {
		if n.Path != self {
			all = append(all, n)
		}
	}
	return chronos.Choices(ranked, all, query), nil
}

// AddParents records child under each of parents. Every parent is attempted;
// the returned error joins the failures.
func (s *Service) AddParents(ctx context.Context, child string, parents []string) error {
	if len(parents) == 0 {
		return fmt.Errorf("no parents given: %w", apperr.ErrInvalid)
	}
	c, err := s.note(child)
	if err != nil {
		return err
	}

	notes := make([]models.Note, 0, len(parents))
	for _, p := range parents {
		n, err := s.note(p)
		if err != nil {
			return err
		}
		if n.Path == c.Path {
			return fmt.Errorf("note %q cannot be its own parent: %w", c.Path, apperr.ErrInvalid)
		}
		notes = append(notes, n)
	}

	linked, err := s.linker.LinkAll(ctx, notes, c)
	if s.onLink != nil {
		for _, p := range linked {
			s.onLink(p, c)
		}
	}
	if err != nil {
		if errors.Is(err, chronos.ErrMalformedField) {
			return fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
		}
		return err
	}
	s.logger.Info("service: parents added", slog.String("child", c.Path), slog.Int("parents", len(linked)))
	return nil
}

func sortedSet(s chronos.Set) []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
