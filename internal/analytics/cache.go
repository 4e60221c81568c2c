package analytics

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long analysis results stay fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cache is a keyed TTL cache for analysis results. Entries older than
// the configured TTL are treated as absent. Safe for concurrent use.
type Cache[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*cacheEntry[T]
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// NewCache creates a cache with the given TTL. A non-positive ttl
// falls back to DefaultCacheTTL.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache[T]{
		ttl:     ttl,
		entries: make(map[string]*cacheEntry[T]),
	}
}

// Get returns the cached value if it exists and is still fresh.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	cached, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Since(cached.fetchedAt) > c.ttl {
		return zero, false
	}
	return cached.value, true
}

// Set stores a value under the key, resetting its age.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry[T]{
		value:     value,
		fetchedAt: time.Now(),
	}
}

// Invalidate removes a key immediately.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// TTL returns the configured expiry duration.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}
