package chronos

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/chronos/internal/models"
)

// DefaultParentField is the front matter list holding a parent's children.
const DefaultParentField = "parent_of"

// ErrMalformedField is returned when the parent field exists but is neither
// a string nor a list.
var ErrMalformedField = errors.New("parent field is not a list")

// FrontmatterTransactor applies fn to note's front matter as one atomic
// read-modify-write. If fn fails nothing is written.
type FrontmatterTransactor interface {
	ProcessFrontMatter(ctx context.Context, note models.Note, fn func(models.Frontmatter) error) error
}

// ParentLinker records parent → child relationships in the parent's front matter.
type ParentLinker struct {
	tx    FrontmatterTransactor
	field string
}

// NewParentLinker returns a linker writing to field, or DefaultParentField if empty.
func NewParentLinker(tx FrontmatterTransactor, field string) *ParentLinker {
	if field == "" {
		field = DefaultParentField
	}
	return &ParentLinker{tx: tx, field: field}
}

// LinkText renders the reference stored for child.
func LinkText(child models.Note) string {
	return "[[" + child.Basename + "]]"
}

// Link appends child's link to parent's list unless it is already there.
// Transaction failures are returned as-is; retrying is up to the caller.
func (l *ParentLinker) Link(ctx context.Context, parent, child models.Note) error {
	link := LinkText(child)
	return l.tx.ProcessFrontMatter(ctx, parent, func(fm models.Frontmatter) error {
		var list []any
		switch v := fm[l.field].(type) {
		case nil:
			list = []any{}
		case []any:
			list = v
		case string:
			list = []any{v}
		default:
			return fmt.Errorf("%s in %s: %w", l.field, parent.Path, ErrMalformedField)
		}
		for _, item := range list {
			if s, ok := item.(string); ok && s == link {
				return nil
			}
		}
		fm[l.field] = append(list, link)
		return nil
	})
}

// LinkAll links child under each parent, continuing past failures. It
// returns the parents whose transaction succeeded and an error joining
// every failure.
func (l *ParentLinker) LinkAll(ctx context.Context, parents []models.Note, child models.Note) ([]models.Note, error) {
	var (
		linked []models.Note
		errs   []error
	)
	for _, p := range parents {
		if err := l.Link(ctx, p, child); err != nil {
			errs = append(errs, fmt.Errorf("link %s → %s: %w", p.Path, child.Path, err))
			continue
		}
		linked = append(linked, p)
	}
	return linked, errors.Join(errs...)
}
