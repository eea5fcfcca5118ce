package frontmatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/starford/chronos/internal/apperr"
	"github.com/starford/chronos/internal/models"
	"github.com/starford/chronos/internal/vault"
)

// AfterWriteFunc is called with the new file content after a committed transaction.
type AfterWriteFunc func(path string, data []byte) error

// Processor applies front matter transactions to vault notes.
//
// Transactions on the same path are serialised. Before committing, the file
// is re-read and compared with the snapshot the mutation was based on; a
// mismatch means another writer touched the file and the transaction is
// rejected with apperr.ErrConflict.
type Processor struct {
	store      vault.Provider
	logger     *slog.Logger
	afterWrite AfterWriteFunc

	locks sync.Map // path → *sync.Mutex
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithAfterWrite registers a hook run after every committed write, typically
// to re-index the note.
func WithAfterWrite(fn AfterWriteFunc) ProcessorOption {
	return func(p *Processor) { p.afterWrite = fn }
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a Processor writing through store.
func NewProcessor(store vault.Provider, opts ...ProcessorOption) *Processor {
	p := &Processor{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) lock(path string) func() {
	v, _ := p.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ProcessFrontMatter reads note's front matter, passes it to fn for in-place
// mutation and writes the result back. If fn returns an error nothing is
// written. A note without front matter gets one. A transaction that leaves
// the front matter unchanged does not touch the file.
func (p *Processor) ProcessFrontMatter(ctx context.Context, note models.Note, fn func(models.Frontmatter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := p.lock(note.Path)
	defer unlock()

	data, err := p.store.Read(note.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("frontmatter: %s: %w", note.Path, apperr.ErrNotFound)
		}
		return err
	}

	block, body, _ := Split(data)
	doc, err := Parse(block)
	if err != nil {
		return fmt.Errorf("frontmatter: %s: %w", note.Path, err)
	}

	if err := fn(doc.Fields); err != nil {
		return err
	}
	if !doc.Changed() {
		p.logger.Debug("frontmatter: unchanged", slog.String("path", note.Path))
		return nil
	}
	after, err := doc.Render(body)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	current, err := p.store.Read(note.Path)
	if err != nil {
		return fmt.Errorf("frontmatter: re-read %s: %w", note.Path, err)
	}
	if !bytes.Equal(current, data) {
		return fmt.Errorf("frontmatter: %s changed during transaction: %w", note.Path, apperr.ErrConflict)
	}
	if err := p.store.Write(note.Path, after); err != nil {
		return err
	}
	p.logger.Debug("frontmatter: committed", slog.String("path", note.Path))

	if p.afterWrite != nil {
		if err := p.afterWrite(note.Path, after); err != nil {
			p.logger.Warn("frontmatter: after-write hook failed",
				slog.String("path", note.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}
