package hunt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediahunt/huntboard/internal/config"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.Hunt.BaseURL = baseURL
	cfg.Hunt.APIKey = "test-key"
	return NewClient(cfg)
}

func TestDiscover_ParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/discover/trending" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
            {"id":"m1","mediaType":"movie","title":"Dune","year":2021,"posterUrl":"http://img/dune.jpg","externalIds":{"tmdb":"438631"}},
            {"id":"s1","mediaType":"series","title":"Severance"}
        ]}`))
	}))
	defer server.Close()

	results, err := newTestClient(server.URL).Discover(context.Background(), "trending")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Dune" || results[0].Year != 2021 {
		t.Errorf("first result = %+v", results[0])
	}
	if results[0].ExternalIDs["tmdb"] != "438631" {
		t.Errorf("externalIds = %v", results[0].ExternalIDs)
	}
	if results[1].Year != 0 || results[1].ExternalIDs != nil {
		t.Errorf("missing fields should stay zero: %+v", results[1])
	}
}

func TestDiscover_EmptyAndMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no results key", `{"ok":true}`},
		{"results not an array", `{"results":"nope"}`},
		{"empty array", `{"results":[]}`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			results, err := newTestClient(server.URL).Discover(context.Background(), "movies")
			if err != nil {
				t.Fatalf("Discover should tolerate %q payloads: %v", tt.name, err)
			}
			if results == nil || len(results) != 0 {
				t.Errorf("want empty non-nil slice, got %#v", results)
			}
		})
	}
}

func TestDiscover_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Discover(context.Background(), "tv"); err == nil {
		t.Error("Discover should surface non-200 responses as errors")
	}
}
