package lookup

import (
	"sync"
	"time"
)

// CacheConfig bounds the lookup memo. Caching is purely an optimization: the
// resolver behaves identically with a nil cache.
type CacheConfig struct {
	// TTL is how long an entry stays valid. Zero disables expiry.
	TTL time.Duration
	// MaxEntries bounds the cache size; at the limit the cache is cleared
	// rather than tracking recency, which is cheap and good enough for
	// reference data that changes rarely.
	MaxEntries int
}

// DefaultCacheConfig returns the bounds used when callers do not care.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 5 * time.Minute, MaxEntries: 4096}
}

type cacheEntry struct {
	value    any
	cachedAt time.Time
}

// Cache memoizes resolved lookups by (function, args) key.
type Cache struct {
	mu      sync.RWMutex
	config  CacheConfig
	entries map[string]cacheEntry
}

// NewCache creates an empty bounded cache.
func NewCache(config CacheConfig) *Cache {
	return &Cache{
		config:  config,
		entries: make(map[string]cacheEntry),
	}
}

// Get retrieves a cached value; ok is false on miss or expiry.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.config.TTL > 0 && time.Since(e.cachedAt) > c.config.TTL {
		return nil, false
	}
	return e.value, true
}

// Set stores a resolved value.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[key] = cacheEntry{value: value, cachedAt: time.Now()}
}

// Invalidate clears the cache, e.g. after reference data is reloaded.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
