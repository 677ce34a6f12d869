package rotation

import (
	"context"
	"testing"

	"github.com/mediahunt/huntboard/internal/discovery"
	"github.com/mediahunt/huntboard/internal/store"
)

func newRotator(t *testing.T) (*Rotator, *store.FileStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return NewRotator(fs), fs
}

func TestNext_StartsWithTrending(t *testing.T) {
	r, _ := newRotator(t)
	if got := r.Next(context.Background()); got != discovery.SectionTrending {
		t.Errorf("first rotation = %q, want trending", got)
	}
}

func TestNext_CyclesDeterministically(t *testing.T) {
	r, _ := newRotator(t)
	ctx := context.Background()

	want := []discovery.Section{
		discovery.SectionTrending,
		discovery.SectionMovies,
		discovery.SectionTV,
		discovery.SectionTrending,
		discovery.SectionMovies,
		discovery.SectionTV,
		discovery.SectionTrending,
	}
	for i, expected := range want {
		if got := r.Next(ctx); got != expected {
			t.Fatalf("load %d: got %q, want %q", i, got, expected)
		}
	}
}

func TestNext_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	first := NewRotator(fs)
	_ = first.Next(ctx) // trending
	_ = first.Next(ctx) // movies

	// A fresh rotator over the same store continues the cycle.
	second := NewRotator(fs)
	if got := second.Next(ctx); got != discovery.SectionTV {
		t.Errorf("after restart rotation = %q, want tv", got)
	}
}

func TestNext_UnrecognizedStateDefaultsToTrending(t *testing.T) {
	r, fs := newRotator(t)
	ctx := context.Background()

	tests := []struct {
		name string
		blob string
	}{
		{"unknown section", `{"section":"anime","timestamp":1}`},
		{"corrupt json", `{nope`},
		{"empty blob", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.Set(ctx, stateKey, []byte(tt.blob)); err != nil {
				t.Fatalf("seed state: %v", err)
			}
			if got := r.Next(ctx); got != discovery.SectionTrending {
				t.Errorf("got %q, want trending", got)
			}
		})
	}
}

func TestOthers(t *testing.T) {
	got := Others(discovery.SectionMovies)
	if len(got) != 2 || got[0] != discovery.SectionTrending || got[1] != discovery.SectionTV {
		t.Errorf("Others(movies) = %v", got)
	}
}
