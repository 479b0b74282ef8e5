// Package cache provides a process-wide key/value store with per-entry TTL,
// used to memoize directory query results. Expiry is lazy (checked on read)
// with a periodic background sweep. There is no size bound and no eviction
// order; entries live until they expire or are invalidated.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is safe for concurrent use. Note: concurrent GetOrSet calls for the
// same missing key may both invoke the factory; the last write wins.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a cache and starts the sweep goroutine. Call Close to stop it.
func New(defaultTTL, sweepInterval time.Duration) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep(time.Now())
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

// Get returns the cached value for key, or false if absent or expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		c.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl uses the default; a zero
// default means no expiry.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePattern removes every key containing pattern as a substring, with
// '*' suffix/prefix wildcards stripped ("directories:orders:*" invalidates
// all keys starting with "directories:orders:").
func (c *Cache) DeletePattern(pattern string) {
	prefixMatch := strings.HasSuffix(pattern, "*")
	pattern = strings.Trim(pattern, "*")

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if prefixMatch {
			if strings.HasPrefix(k, pattern) {
				delete(c.entries, k)
			}
		} else if strings.Contains(k, pattern) {
			delete(c.entries, k)
		}
	}
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// GetOrSet returns the cached value for key, computing and caching it via
// factory on a miss.
func (c *Cache) GetOrSet(key string, ttl time.Duration, factory func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := factory()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Len reports the number of live entries (expired-but-unswept included).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
