package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestListSkipsHiddenAndForeignFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"))
	writeFile(t, filepath.Join(root, "Sub", "b.MD"))
	writeFile(t, filepath.Join(root, "Sub", "c.txt"))
	writeFile(t, filepath.Join(root, ".obsidian", "workspace.md"))
	writeFile(t, filepath.Join(root, "_templates", "daily.md"))
	writeFile(t, filepath.Join(root, "_draft.md"))

	paths, err := NewLister([]string{".md"}).List(context.Background(), root)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{filepath.Join(root, "Sub", "b.MD"), filepath.Join(root, "a.md")}
	if len(paths) != len(want) {
		t.Fatalf("unexpected paths %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("position %d: got %s want %s", i, paths[i], want[i])
		}
	}
}

func TestListAcceptsExtraExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"))
	writeFile(t, filepath.Join(root, "b.pdf"))

	paths, err := NewLister([]string{"md", ".PDF"}).List(context.Background(), root)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
}

func TestListMissingRoot(t *testing.T) {
	if _, err := NewLister(nil).List(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing root")
	}
}
