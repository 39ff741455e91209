// Package cache holds the transient per-feed article cache.
package cache

import (
	"sync"
	"time"

	"github.com/newsgrid/newsgrid/internal/model"
)

// Entry is the last-fetched article list for one feed.
type Entry struct {
	FeedKey   string
	Articles  []model.Article
	FetchedAt time.Time
}

// Cache maps feed keys to their most recent fetch result. Entries are
// overwritten in place and never deleted; size is bounded by feed count.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry), now: time.Now}
}

// NewAt creates a cache with an injected clock for tests.
func NewAt(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]Entry), now: now}
}

// Get returns the entry for a feed key, if any.
func (c *Cache) Get(feedKey string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[feedKey]
	return e, ok
}

// Put overwrites the entry for a feed key and stamps the current time.
func (c *Cache) Put(feedKey string, articles []model.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[feedKey] = Entry{
		FeedKey:   feedKey,
		Articles:  articles,
		FetchedAt: c.now(),
	}
}

// Fresh reports whether an entry exists and is younger than expiry.
func (c *Cache) Fresh(feedKey string, expiry time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[feedKey]
	if !ok {
		return false
	}
	return c.now().Sub(e.FetchedAt) < expiry
}

// Len returns the number of cached feeds.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
