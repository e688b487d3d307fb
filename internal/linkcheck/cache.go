package linkcheck

import (
	"sync"
	"time"

	"github.com/Bahjat/page-link-checker/internal/model"
)

type cacheEntry struct {
	link    model.Link
	expires time.Time
}

// StatusCache remembers check results by absolute URL for a limited time.
// Expired entries are treated as absent on read and removed by PurgeExpired.
// Concurrent writers to the same key race; the last one wins.
type StatusCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewStatusCache returns an empty cache. A nil clock means time.Now.
func NewStatusCache(clock func() time.Time) *StatusCache {
	if clock == nil {
		clock = time.Now
	}
	return &StatusCache{
		now:     clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached link for url if it has not expired.
func (c *StatusCache) Get(url string) (model.Link, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expires) {
		return model.Link{}, false
	}
	return entry.link, true
}

// Put stores link under url until ttl has elapsed. Non-positive ttls are ignored.
func (c *StatusCache) Put(url string, link model.Link, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	expires := c.now().Add(ttl)

	c.mu.Lock()
	c.entries[url] = cacheEntry{link: link, expires: expires}
	c.mu.Unlock()
}

// PurgeExpired drops expired entries and returns how many were removed.
func (c *StatusCache) PurgeExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for url, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, url)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *StatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
