package cache

import (
	"strings"
	"sync"
	"time"
)

// entry wraps a cached value with expiry and insertion order tracking.
type entry[V any] struct {
	value     V
	expiry    time.Time
	insertIdx int64
}

// Cache is a TTL cache with a bounded number of entries. When full, the
// oldest inserted entry is evicted. A zero or negative TTL disables caching.
// Thread-safe with sync.RWMutex.
type Cache[V any] struct {
	mu         sync.RWMutex
	items      map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates a Cache with the given TTL and max entry count.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache[V]{
		items:      make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey joins key parts with "|". Parts must not contain "|".
func MakeKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// Enabled reports whether Set stores anything.
func (c *Cache[V]) Enabled() bool {
	return c.ttl > 0
}

// Get returns a cached value if found and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return zero, false
	}

	if !c.now().Before(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && !c.now().Before(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

// Set stores a value. Evicts the oldest entry if at capacity.
func (c *Cache[V]) Set(key string, value V) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry[V]{
		value:     value,
		expiry:    c.now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// InvalidatePrefix removes all entries whose key starts with prefix.
func (c *Cache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
