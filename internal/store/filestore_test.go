package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok := s.Get(ctx, "rotation"); ok {
		t.Error("Get on empty store should miss")
	}

	if err := s.Set(ctx, "rotation", []byte(`{"section":"movies"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok := s.Get(ctx, "rotation")
	if !ok {
		t.Fatal("Get should hit after Set")
	}
	if string(data) != `{"section":"movies"}` {
		t.Errorf("Get = %q", data)
	}

	// Overwrite is wholesale.
	if err := s.Set(ctx, "rotation", []byte(`{"section":"tv"}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	data, _ = s.Get(ctx, "rotation")
	if string(data) != `{"section":"tv"}` {
		t.Errorf("after overwrite Get = %q", data)
	}
}

func TestFileStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete of absent key should be a no-op, got %v", err)
	}

	_ = s.Set(ctx, "auth_trakt", []byte(`{}`))
	if err := s.Delete(ctx, "auth_trakt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(ctx, "auth_trakt"); ok {
		t.Error("Get should miss after Delete")
	}
}

func TestFileStore_InvalidKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "a/b", `a\b`, "../escape"} {
		if err := s.Set(ctx, key, []byte("x")); err == nil {
			t.Errorf("Set(%q) should be rejected", key)
		}
		if _, ok := s.Get(ctx, key); ok {
			t.Errorf("Get(%q) should miss", key)
		}
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err = first.Set(ctx, "discovery_trending", []byte(`{"results":[]}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := second.Get(ctx, "discovery_trending"); !ok {
		t.Error("value should survive a store reopen")
	}
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"))
	entries, err := os.ReadDir(s.BaseDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
