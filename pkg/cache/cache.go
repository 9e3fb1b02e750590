// Package cache implements a TTL-expiring key/value store plus a wrapper
// that memoizes a function and notifies on value change.
package cache

import (
	"sync"
	"time"
)

// entry holds a cached value alongside its expiry bookkeeping.
type entry struct {
	value      interface{}
	ttl        time.Duration
	insertedAt time.Time
}

func (e entry) expired(now time.Time) bool {
	if e.ttl == 0 {
		return false
	}
	return !e.insertedAt.Add(e.ttl).After(now)
}

// Cache is a TTL-expiring key/value store, safe for concurrent use from
// arbitrary crawler workers.
type Cache struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]entry
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		now:  time.Now,
		data: make(map[string]entry),
	}
}

// Set stores value under key with the given ttl. ttl == 0 means the entry
// never expires.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry{value: value, ttl: ttl, insertedAt: c.now()}
}

// Get returns the value stored under key if present and unexpired;
// otherwise it removes the entry (if present) and returns def.
func (c *Cache) Get(key string, def interface{}) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return def
	}
	if e.expired(c.now()) {
		delete(c.data, key)
		return def
	}
	return e.value
}

// Delete removes key unconditionally.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
