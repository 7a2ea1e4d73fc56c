package osfilesystem

import (
	"path/filepath"
	"testing"
)

func TestFileSystem_RoundTrip(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "nested", "dir", "frame.bin")

	if err := fs.WriteFile(path, []byte("payload")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("expected %q, got %q", "payload", data)
	}

	exists, err := fs.Exists(path)
	if err != nil || !exists {
		t.Errorf("expected file to exist, got (%v, %v)", exists, err)
	}
}

func TestFileSystem_ExistsAndRemove(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")

	exists, err := fs.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected missing file to not exist")
	}

	if err := fs.WriteFile(path, []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	exists, _ = fs.Exists(path)
	if exists {
		t.Error("expected file to be removed")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := fs.MkdirAll(path); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	exists, err := fs.Exists(path)
	if err != nil || !exists {
		t.Errorf("expected directory to exist, got (%v, %v)", exists, err)
	}
}
