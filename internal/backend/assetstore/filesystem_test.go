package assetstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystemStore_PutGet(t *testing.T) {
	ctx := context.Background()

	t.Run("stores file on disk", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir, "")

		if err := store.Put(ctx, "123-sunset.webp", []byte("test content"), "image/webp"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(filepath.Join(dir, "123-sunset.webp"))
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "test content" {
			t.Errorf("expected 'test content', got %q", content)
		}

		got, err := store.Get(ctx, "123-sunset.webp")
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if string(got) != "test content" {
			t.Errorf("expected 'test content', got %q", got)
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir, "")

		if err := store.Put(ctx, "originals/a.png", []byte("x"), "image/png"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "originals", "a.png")); err != nil {
			t.Errorf("expected nested file to exist: %v", err)
		}
	})

	t.Run("keeps existing key", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir, "")
		if err := store.Put(ctx, "k", []byte("one"), ""); err != nil {
			t.Fatalf("Put error: %v", err)
		}
		if err := store.Put(ctx, "k", []byte("two"), ""); !errors.Is(err, ErrExists) {
			t.Errorf("expected ErrExists, got %v", err)
		}

		got, _ := store.Get(ctx, "k")
		if string(got) != "one" {
			t.Errorf("expected 'one', got %q", got)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected no leftover temp files, got %d entries", len(entries))
		}
	})

	t.Run("missing key", func(t *testing.T) {
		store := NewFileSystemStore(t.TempDir(), "")
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFileSystemStore_Delete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileSystemStore(dir, "")

	if err := store.Put(ctx, "del.png", []byte("data"), "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := store.Delete(ctx, "del.png"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "del.png")); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}
	if err := store.Delete(ctx, "del.png"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestFileSystemStore_RejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	store := NewFileSystemStore(t.TempDir(), "")

	for _, key := range []string{"", "../escape", "/abs", "a/../../b", `a\b`, "a//b"} {
		t.Run(key, func(t *testing.T) {
			if err := store.Put(ctx, key, []byte("x"), ""); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestFileSystemStore_PublicURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		expected string
	}{
		{"default", "", "/assets/1-a.webp"},
		{"trailing slash", "https://cdn.example.com/", "https://cdn.example.com/1-a.webp"},
		{"custom", "/static", "/static/1-a.webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFileSystemStore(t.TempDir(), tt.baseURL)
			if got := store.PublicURL("1-a.webp"); got != tt.expected {
				t.Errorf("PublicURL = %q, want %q", got, tt.expected)
			}
		})
	}
}
