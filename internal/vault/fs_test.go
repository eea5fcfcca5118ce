package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	v, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return v
}

func TestWriteAndRead(t *testing.T) {
	v := tempVault(t)
	content := []byte("---\ntags: MOC\n---\nBody\n")
	if err := v.Write("moc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := v.Read("moc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	v := tempVault(t)
	if err := v.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := v.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestListSkipsHiddenAndNonMarkdown(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("a.md", []byte("a"))
	_ = v.Write("sub/b.md", []byte("b"))
	_ = v.Write("readme.txt", []byte("not md"))
	_ = v.Write(".obsidian/workspace.md", []byte("hidden"))

	items, err := v.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = true
		if it.Checksum == "" || it.ModTime.IsZero() {
			t.Errorf("incomplete metadata: %+v", it)
		}
	}
	if !paths["a.md"] || !paths["sub/b.md"] {
		t.Errorf("paths = %v", paths)
	}
}

func TestStat(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("dir/n.md", []byte("x"))
	meta, err := v.Stat("dir/n.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Path != "dir/n.md" || meta.Checksum != Checksum([]byte("x")) {
		t.Errorf("meta = %+v", meta)
	}
	if _, err := v.Stat("missing.md"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTraversalBlocked(t *testing.T) {
	v := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := v.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := v.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("atomic.md", []byte("original content"))

	if err := v.Write("atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := v.Read("atomic.md")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(v.Root(), ".chronos-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFSView(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("folder/x.md", []byte("x"))
	entries, err := fs.ReadDir(v.FS(), "folder")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "x.md" {
		t.Errorf("entries = %v", entries)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "chronos-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
