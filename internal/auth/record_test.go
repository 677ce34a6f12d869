package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/store"
)

func newStateStore(t *testing.T) *store.FileStore {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestCredential_RoundTrip(t *testing.T) {
	fs := newStateStore(t)
	ctx := context.Background()

	if _, ok := LoadCredential(ctx, fs, "trakt"); ok {
		t.Error("LoadCredential on empty store should miss")
	}

	expiry := time.Now().Add(90 * 24 * time.Hour).Truncate(time.Second)
	cred := &deviceflow.Credential{AccessToken: "tok123", RefreshToken: "ref456", ExpiresAt: expiry}
	if err := SaveCredential(ctx, fs, "trakt", cred); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}

	loaded, ok := LoadCredential(ctx, fs, "trakt")
	if !ok {
		t.Fatal("LoadCredential should hit after save")
	}
	if loaded.AccessToken != "tok123" || loaded.RefreshToken != "ref456" {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.ExpiresAt.Equal(expiry) {
		t.Errorf("ExpiresAt = %v, want %v", loaded.ExpiresAt, expiry)
	}
}

func TestCredential_NoExpiry(t *testing.T) {
	fs := newStateStore(t)
	ctx := context.Background()

	if err := SaveCredential(ctx, fs, "plex", &deviceflow.Credential{AccessToken: "plex-token"}); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}
	loaded, ok := LoadCredential(ctx, fs, "plex")
	if !ok {
		t.Fatal("LoadCredential miss")
	}
	if !loaded.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt should stay zero, got %v", loaded.ExpiresAt)
	}
}

func TestSaveCredential_PreservesUnknownFields(t *testing.T) {
	fs := newStateStore(t)
	ctx := context.Background()

	seed := []byte(`{"access_token":"old","custom_note":"keep me"}`)
	if err := fs.Set(ctx, "auth_trakt", seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := SaveCredential(ctx, fs, "trakt", &deviceflow.Credential{AccessToken: "new"}); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}

	raw, _ := fs.Get(ctx, "auth_trakt")
	blob := string(raw)
	if !strings.Contains(blob, `"custom_note":"keep me"`) {
		t.Errorf("unknown field dropped: %s", blob)
	}
	if !strings.Contains(blob, `"access_token":"new"`) {
		t.Errorf("access token not updated: %s", blob)
	}
}

func TestCredential_CorruptBlobIsMiss(t *testing.T) {
	fs := newStateStore(t)
	ctx := context.Background()

	if err := fs.Set(ctx, "auth_trakt", []byte("{broken")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := LoadCredential(ctx, fs, "trakt"); ok {
		t.Error("corrupt blob should be a miss")
	}

	// Saving over a corrupt blob starts clean instead of failing.
	if err := SaveCredential(ctx, fs, "trakt", &deviceflow.Credential{AccessToken: "fresh"}); err != nil {
		t.Fatalf("SaveCredential over corrupt blob: %v", err)
	}
	if loaded, ok := LoadCredential(ctx, fs, "trakt"); !ok || loaded.AccessToken != "fresh" {
		t.Errorf("recovery save failed: %+v ok=%v", loaded, ok)
	}
}

func TestDeleteCredential(t *testing.T) {
	fs := newStateStore(t)
	ctx := context.Background()

	_ = SaveCredential(ctx, fs, "trakt", &deviceflow.Credential{AccessToken: "tok"})
	if err := DeleteCredential(ctx, fs, "trakt"); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}
	if _, ok := LoadCredential(ctx, fs, "trakt"); ok {
		t.Error("credential should be gone after delete")
	}
}
