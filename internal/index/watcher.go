package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/chronos/internal/vault"
)

// Event kinds reported by Watch.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// NoteEvent is one watcher-driven index change. ModTime is zero for
// deletions.
type NoteEvent struct {
	Kind    string
	Path    string
	ModTime time.Time
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(NoteEvent)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	db     *DB
	store  vault.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

func (w *watcher) emit(kind, rel string, mtime time.Time) {
	if w.cb != nil {
		w.cb(NoteEvent{Kind: kind, Path: rel, ModTime: mtime})
	}
}

// Watch keeps the index in step with the vault until ctx is cancelled.
// New directories are watched as they appear. fsnotify reports a rename on
// the old path only, so renames delete the old entry and schedule a short
// reconciliation pass that indexes whatever the file became.
func Watch(ctx context.Context, db *DB, store vault.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, vaultRoot); err != nil {
		return err
	}
	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	reconcile := time.NewTimer(reconcileDelay)
	if !reconcile.Stop() {
		<-reconcile.C
	}
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-reconcile.C:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(fw, ev) {
				reconcile.Reset(reconcileDelay)
			}

		case werr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

// handle applies one fsnotify event and reports whether a reconciliation
// pass is needed.
func (w *watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return false
			}
			if err := addDirsRecursive(fw, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			// Files may have landed before the directory was watched.
			return true
		}
	}
	if !strings.HasSuffix(ev.Name, ".md") {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, ".") {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		mtime, err := w.index(rel)
		if err != nil {
			w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return false
		}
		w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.emit(kind, rel, mtime)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if err := w.db.DeleteNote(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return false
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.emit(EventDeleted, rel, time.Time{})
		return ev.Op&fsnotify.Rename != 0
	}
	return false
}

// index stores rel and returns its modification time.
func (w *watcher) index(rel string) (time.Time, error) {
	meta, err := w.store.Stat(rel)
	if err != nil {
		return time.Time{}, err
	}
	data, err := w.store.Read(rel)
	if err != nil {
		return time.Time{}, err
	}
	return meta.ModTime, IndexFile(w.db, meta, data)
}

// reconcile removes index entries whose files are gone and indexes files
// that are new or changed on disk.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		old, indexed := checksums[m.Path]
		if old == m.Checksum {
			continue
		}
		data, err := w.store.Read(m.Path)
		if err != nil {
			continue
		}
		if err := IndexFile(w.db, m, data); err != nil {
			continue
		}
		w.logger.Debug("reconcile: indexed", slog.String("path", m.Path))
		if indexed {
			w.emit(EventUpdated, m.Path, m.ModTime)
		} else {
			w.emit(EventCreated, m.Path, m.ModTime)
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := w.db.DeleteNote(p); err == nil {
			w.logger.Debug("reconcile: removed stale", slog.String("path", p))
			w.emit(EventDeleted, p, time.Time{})
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
