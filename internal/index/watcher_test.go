package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/chronos/internal/vault"
)

func watcherTestEnv(t *testing.T) (string, vault.Provider, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store, testDB(t)
}

func errorLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []NoteEvent
}

func (l *eventLog) record(ev NoteEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// find returns the first recorded event of kind for path.
func (l *eventLog) find(kind, path string) (NoteEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.events, func(ev NoteEvent) bool { return ev.Kind == kind && ev.Path == path })
	if i < 0 {
		return NoteEvent{}, false
	}
	return l.events[i], true
}

func (l *eventLog) has(kind, path string) bool {
	_, ok := l.find(kind, path)
	return ok
}

func startWatch(t *testing.T, db *DB, store vault.Provider, dir string, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, dir, errorLogger(), cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	log := &eventLog{}
	startWatch(t, db, store, vaultDir, log.record)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has(EventCreated, "new.md")
	}, "expected created:new.md callback")

	if ev, _ := log.find(EventCreated, "new.md"); ev.ModTime.IsZero() {
		t.Error("created event should carry the file's mtime")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	startWatch(t, db, store, vaultDir, nil)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("subdir/deep.md")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644)
	if err := Sync(db, store, errorLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	log := &eventLog{}
	startWatch(t, db, store, vaultDir, log.record)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == "" && log.has(EventDeleted, "del.md")
	}, "deleted file still in index")

	if ev, _ := log.find(EventDeleted, "del.md"); !ev.ModTime.IsZero() {
		t.Errorf("deleted event mtime = %v, want zero", ev.ModTime)
	}
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Rename"), 0o644)
	if err := Sync(db, store, errorLogger()); err != nil {
		t.Fatal(err)
	}
	startWatch(t, db, store, vaultDir, nil)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_LinkResolvesOnceTargetAppears(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "src.md"), []byte("see [[Later]]"), 0o644)
	if err := Sync(db, store, errorLogger()); err != nil {
		t.Fatal(err)
	}
	if bl, _ := db.Backlinks("Later.md"); len(bl) != 0 {
		t.Fatalf("unexpected backlinks before target exists: %v", bl)
	}
	startWatch(t, db, store, vaultDir, nil)

	_ = os.WriteFile(filepath.Join(vaultDir, "Later.md"), []byte("# Later"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		bl, _ := db.Backlinks("Later.md")
		return bl["src.md"] == 1
	}, "link to new note did not resolve")
}
