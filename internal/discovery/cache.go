package discovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jellydator/ttlcache/v3"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/hunt"
	"github.com/mediahunt/huntboard/internal/store"
)

// stateKeyPrefix namespaces the persisted cache blobs in the state store.
const stateKeyPrefix = "discovery_"

// cacheEntry is the persisted form of one cached bucket.
type cacheEntry struct {
	Results []hunt.MediaSummary `json:"results"`
	// FetchedAt is epoch milliseconds; entry is fresh while now-FetchedAt < TTL.
	FetchedAt int64 `json:"timestamp"`
}

// Cache is the TTL-bounded discovery cache. It fronts the durable state store
// with an in-memory ttlcache layer so hot reads skip deserialization; the
// durable layer makes entries survive a process restart.
//
// Persistence is best-effort: write failures and corrupt blobs degrade to
// cache misses and never interrupt the fetch path.
type Cache struct {
	ttl   time.Duration
	mem   *ttlcache.Cache[Section, []hunt.MediaSummary]
	state store.StateStore
	now   func() time.Time
}

// NewCache creates a discovery cache with the given TTL backed by state.
func NewCache(state store.StateStore, ttl time.Duration) *Cache {
	mem := ttlcache.New(
		ttlcache.WithTTL[Section, []hunt.MediaSummary](ttl),
		ttlcache.WithDisableTouchOnHit[Section, []hunt.MediaSummary](),
	)
	go mem.Start()

	return &Cache{
		ttl:   ttl,
		mem:   mem,
		state: state,
		now:   time.Now,
	}
}

// Get returns the cached results for section when the entry is still fresh.
// Expired, missing and corrupt entries are all a miss.
func (c *Cache) Get(ctx context.Context, section Section) ([]hunt.MediaSummary, bool) {
	if item := c.mem.Get(section); item != nil {
		return item.Value(), true
	}

	raw, ok := c.state.Get(ctx, stateKey(section))
	if !ok {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.WithField("section", section).Debugf("corrupt cache blob treated as miss: %v", err)
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(entry.FetchedAt))
	if age < 0 || age >= c.ttl {
		return nil, false
	}

	// Rehydrate the memory layer with the remaining lifetime.
	c.mem.Set(section, entry.Results, c.ttl-age)
	return entry.Results, true
}

// Put overwrites the entry for section wholesale with the current timestamp.
// Persistence failures are logged and swallowed; caching is an optimization,
// never a correctness dependency.
func (c *Cache) Put(ctx context.Context, section Section, results []hunt.MediaSummary) {
	if results == nil {
		results = []hunt.MediaSummary{}
	}
	c.mem.Set(section, results, c.ttl)

	entry := cacheEntry{Results: results, FetchedAt: c.now().UnixMilli()}
	raw, err := json.Marshal(entry)
	if err != nil {
		log.WithField("section", section).Warnf("serialize cache entry failed: %v", err)
		return
	}
	if err = c.state.Set(ctx, stateKey(section), raw); err != nil {
		log.WithField("section", section).Warnf("persist cache entry failed: %v", err)
	}
}

// Close stops the in-memory cleanup goroutine.
func (c *Cache) Close() {
	c.mem.Stop()
}

func stateKey(section Section) string {
	return stateKeyPrefix + string(section)
}
