package cache

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// ResultCache is a short-TTL cache used to paint a view instantly on remount
// before a fresh snapshot arrives. Written on every successful merge flush,
// read once on a consumer's (re)mount, never written by a read.
// -----------------------------------------------------------------------------

type entry struct {
	storedAt time.Time
	payload  interface{}
}

type ResultCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]entry
}

// -----------------------------------------------------------------------------

// NewResultCache creates a cache with the given TTL. now is injectable for
// deterministic expiry tests; pass nil for the wall clock.
func NewResultCache(ttl time.Duration, now func() time.Time) *ResultCache {
	if now == nil {
		now = time.Now
	}
	return &ResultCache{
		ttl:   ttl,
		now:   now,
		items: make(map[string]entry),
	}
}

// -----------------------------------------------------------------------------

// Get returns the cached payload for key, or (nil, false) on a miss.
// An entry older than the TTL is a miss and is dropped.
func (c *ResultCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if cur, ok := c.items[key]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.payload, true
}

// -----------------------------------------------------------------------------

// Put stores the payload under key, stamping it with the current time.
func (c *ResultCache) Put(key string, payload interface{}) {
	c.mu.Lock()
	c.items[key] = entry{storedAt: c.now(), payload: payload}
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Len reports the number of stored entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
