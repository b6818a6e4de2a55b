package middleware

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// CacheKey builds the fabric's canonical cache key: the context key followed
// by its parameters sorted by parameter name, so that two calls differing
// only in parameter order still hit the same cache entry.
func CacheKey(contextKey string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(contextKey)
	for _, k := range names {
		b.WriteString("::")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

type cacheEntry struct {
	value    any
	deadline time.Time
}

// TTLCache is a concurrency-safe cache with per-entry expiry. Entries are
// evicted lazily on Get; there is no background sweep, matching the
// reference implementation's simple in-process cache.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache returns a TTLCache whose entries expire ttl after Set.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key and true, or (nil, false) if absent
// or expired. An expired entry is removed as a side effect.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.deadline) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's configured TTL, overwriting
// any existing entry.
func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, deadline: c.now().Add(c.ttl)}
}

// Invalidate removes key if present. No-op if absent.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of entries currently stored, expired or not. It
// exists mainly for tests; callers should not rely on it for eviction
// decisions since expired entries are only removed on Get.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
