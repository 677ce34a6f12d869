package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/discovery"
	"github.com/mediahunt/huntboard/internal/hunt"
	"github.com/mediahunt/huntboard/internal/rotation"
	"github.com/mediahunt/huntboard/internal/store"
)

type noopFetcher struct{}

func (noopFetcher) Discover(context.Context, string) ([]hunt.MediaSummary, error) {
	return []hunt.MediaSummary{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cache := discovery.NewCache(st, 12*time.Hour)
	t.Cleanup(cache.Close)

	authorizer := deviceflow.NewAuthorizer(nil)
	t.Cleanup(authorizer.Shutdown)

	return NewServer(&config.Config{Port: 0}, authorizer, map[string]deviceflow.Provider{},
		discovery.NewLoader(cache, noopFetcher{}), rotation.NewRotator(st), st)
}

func TestRoutesAreRegistered(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/v0/discover/home", http.StatusOK},
		{http.MethodGet, "/v0/discover/trending", http.StatusOK},
		{http.MethodPost, "/v0/link/unknown/start", http.StatusNotFound},
		{http.MethodGet, "/v0/link/unknown/status", http.StatusNotFound},
		{http.MethodDelete, "/v0/link/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		server.Engine().ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
