package hunt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/util"
)

// Client talks to the upstream hunt API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a hunt API client using the configured base URL, API key
// and proxy settings.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.Hunt.BaseURL, "/"),
		apiKey:     cfg.Hunt.APIKey,
		httpClient: util.SetProxy(cfg, &http.Client{Timeout: cfg.Hunt.Timeout()}),
	}
}

// Discover fetches one discovery bucket ("trending", "movies" or "tv").
// A payload without a results array decodes as an empty, non-nil slice; the
// distinction between "empty" and "failed" stays at the transport level.
func (c *Client) Discover(ctx context.Context, section string) ([]MediaSummary, error) {
	endpoint := fmt.Sprintf("%s/api/discover/%s", c.baseURL, section)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("hunt: create discover request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hunt: discover %s request failed: %w", section, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hunt: read discover response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hunt: discover %s failed: %d %s", section, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseDiscoverResults(body), nil
}

// parseDiscoverResults decodes the results array leniently: items missing
// fields keep zero values, and a missing or malformed array yields an empty
// slice rather than an error.
func parseDiscoverResults(body []byte) []MediaSummary {
	results := make([]MediaSummary, 0)
	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		summary := MediaSummary{
			ID:        item.Get("id").String(),
			MediaType: item.Get("mediaType").String(),
			Title:     item.Get("title").String(),
			Year:      int(item.Get("year").Int()),
			Overview:  item.Get("overview").String(),
			PosterURL: item.Get("posterUrl").String(),
		}
		if ids := item.Get("externalIds"); ids.IsObject() {
			summary.ExternalIDs = make(map[string]string)
			ids.ForEach(func(k, v gjson.Result) bool {
				summary.ExternalIDs[k.String()] = v.String()
				return true
			})
		}
		results = append(results, summary)
		return true
	})
	return results
}
