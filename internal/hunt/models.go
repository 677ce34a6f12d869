// Package hunt implements the REST client for the upstream media-hunt API,
// the external service that aggregates trending and popular titles across the
// configured indexers.
package hunt

// MediaSummary describes one discoverable title as returned by the hunt API.
// The upstream payload carries more fields than these; unknown fields are
// ignored on decode.
type MediaSummary struct {
	ID          string            `json:"id"`
	MediaType   string            `json:"mediaType"` // movie | series
	Title       string            `json:"title"`
	Year        int               `json:"year,omitempty"`
	Overview    string            `json:"overview,omitempty"`
	PosterURL   string            `json:"posterUrl,omitempty"`
	ExternalIDs map[string]string `json:"externalIds,omitempty"`
}
