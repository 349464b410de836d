// Package cache is a time-bounded read-through cache for expensive
// per-session detail lookups. The cache itself never performs network
// I/O; population happens at call sites on miss. Entries are
// independent of session identity and survive logout unless Clear is
// called.
package cache

import (
	"sync"
	"time"
)

// DefaultEvictThreshold is the proportion of expired entries that
// triggers an opportunistic sweep on Put.
const DefaultEvictThreshold = 0.3

type entry[T any] struct {
	timestamp time.Time
	data      T
}

// Cache maps an identifier to a cached payload with a fixed TTL.
// Safe for concurrent use.
type Cache[T any] struct {
	entries        map[string]entry[T]
	now            func() time.Time
	mu             sync.Mutex
	ttl            time.Duration
	evictThreshold float64
}

// New creates a cache with the given TTL.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		entries:        make(map[string]entry[T]),
		ttl:            ttl,
		evictThreshold: DefaultEvictThreshold,
		now:            time.Now,
	}
}

// Get returns the cached value for id if present and younger than the
// TTL. A stale or missing entry is a miss, not an error.
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[id]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.timestamp) >= c.ttl {
		return zero, false
	}
	return e.data, true
}

// Put stores data under id with the current timestamp, unconditionally
// overwriting. When the share of expired entries crosses the eviction
// threshold, expired entries are swept as a side effect.
func (c *Cache[T]) Put(id string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = entry[T]{data: data, timestamp: c.now()}

	if c.expiredFractionLocked() >= c.evictThreshold {
		c.evictExpiredLocked()
	}
}

// Invalidate removes a single entry.
func (c *Cache[T]) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// EvictExpired removes all entries whose TTL has elapsed and returns
// how many were removed.
func (c *Cache[T]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictExpiredLocked()
}

// Len returns the number of entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) evictExpiredLocked() int {
	now := c.now()
	removed := 0
	for id, e := range c.entries {
		if now.Sub(e.timestamp) >= c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *Cache[T]) expiredFractionLocked() float64 {
	if len(c.entries) == 0 {
		return 0
	}
	now := c.now()
	expired := 0
	for _, e := range c.entries {
		if now.Sub(e.timestamp) >= c.ttl {
			expired++
		}
	}
	return float64(expired) / float64(len(c.entries))
}
