package discovery

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mediahunt/huntboard/internal/hunt"
)

// refreshTimeout bounds background refetches so a hung upstream cannot pin
// goroutines indefinitely.
const refreshTimeout = 30 * time.Second

// Fetcher fetches one discovery bucket from the upstream hunt API.
type Fetcher interface {
	Discover(ctx context.Context, section string) ([]hunt.MediaSummary, error)
}

// SectionPayload is what the HTTP surface renders for one bucket.
type SectionPayload struct {
	Section Section             `json:"section"`
	Results []hunt.MediaSummary `json:"results"`
	// Cached reports whether the results were served from cache.
	Cached bool `json:"cached"`
}

// Loader composes the cache and the upstream client into the operation
// callers actually use: serve from cache when fresh (revalidating in the
// background), fetch synchronously on a miss.
type Loader struct {
	cache   *Cache
	fetcher Fetcher
	group   singleflight.Group
}

// NewLoader creates a section loader over cache and fetcher.
func NewLoader(cache *Cache, fetcher Fetcher) *Loader {
	return &Loader{cache: cache, fetcher: fetcher}
}

// LoadSection returns the payload for section. On a cache hit the cached
// results are returned immediately and a fire-and-forget refetch keeps the
// entry warm; the visible result never waits on that refetch. On a miss the
// fetch happens synchronously and populates the cache before returning.
func (l *Loader) LoadSection(ctx context.Context, section Section) (*SectionPayload, error) {
	if results, ok := l.cache.Get(ctx, section); ok {
		go l.refresh(section)
		return &SectionPayload{Section: section, Results: results, Cached: true}, nil
	}

	results, err := l.fetchAndStore(ctx, section)
	if err != nil {
		return nil, err
	}
	return &SectionPayload{Section: section, Results: results, Cached: false}, nil
}

// Warm refetches the given sections in the background unconditionally. Used
// by the rotator to pre-populate the buckets it did not foreground.
func (l *Loader) Warm(sections ...Section) {
	for _, section := range sections {
		go l.refresh(section)
	}
}

// refresh performs one background refetch for section. Concurrent refreshes
// of the same section collapse into a single upstream request; failures are
// logged only, since the cached entry (if any) remains servable.
func (l *Loader) refresh(section Section) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if _, err := l.fetchAndStore(ctx, section); err != nil {
		log.WithField("section", section).Debugf("background refresh failed: %v", err)
	}
}

func (l *Loader) fetchAndStore(ctx context.Context, section Section) ([]hunt.MediaSummary, error) {
	v, err, _ := l.group.Do(string(section), func() (interface{}, error) {
		results, errFetch := l.fetcher.Discover(ctx, string(section))
		if errFetch != nil {
			return nil, errFetch
		}
		l.cache.Put(ctx, section, results)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]hunt.MediaSummary), nil
}
