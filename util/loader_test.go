package util

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()

	touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "a.PNG"))
	touch(t, filepath.Join(dir, "c.jpeg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "archive.zip"))
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListImageFiles(dir)
	if err != nil {
		t.Fatalf("ListImageFiles() error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.PNG"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.jpeg"),
	}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths %v, want %d", len(paths), paths, len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestListImageFilesMissingDirectory(t *testing.T) {
	if _, err := ListImageFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("ListImageFiles() succeeded on a missing directory")
	}
}

func TestListImageFilesEmptyDirectory(t *testing.T) {
	paths, err := ListImageFiles(t.TempDir())
	if err != nil {
		t.Fatalf("ListImageFiles() error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("got %d paths from empty directory", len(paths))
	}
}
