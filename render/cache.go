// ABOUTME: In-memory render cache keyed by the sha256 of the markdown buffer.
// ABOUTME: Supports TTL expiry, a bounded entry count with pruning, concurrent access, and clearing.
package render

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the cache when no explicit limit is given.
const DefaultMaxEntries = 256

// RenderFunc renders a markdown buffer to markup.
type RenderFunc func(text string, final bool) string

// cacheEntry holds a single cached render result with its creation timestamp.
type cacheEntry struct {
	markup    string
	createdAt time.Time
}

// RenderCache wraps a RenderFunc with an in-memory cache. The final flag is not
// part of the key because it does not change the produced markup.
type RenderCache struct {
	renderFn   RenderFunc
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	mu         sync.RWMutex
	now        func() time.Time
}

// NewRenderCache creates a RenderCache wrapping renderFn. Entries expire after
// ttl; at most maxEntries are kept (DefaultMaxEntries when maxEntries <= 0).
func NewRenderCache(renderFn RenderFunc, ttl time.Duration, maxEntries int) *RenderCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &RenderCache{
		renderFn:   renderFn,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
		now:        time.Now,
	}
}

// Render returns the cached markup for text when present and fresh, and
// renders and stores it otherwise.
func (c *RenderCache) Render(text string, final bool) string {
	key := cacheKey(text)

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok && c.now().Sub(entry.createdAt) < c.ttl {
		markup := entry.markup
		c.mu.RUnlock()
		return markup
	}
	c.mu.RUnlock()

	markup := c.renderFn(text, final)

	c.mu.Lock()
	if len(c.entries) >= c.maxEntries {
		c.pruneLocked()
	}
	c.entries[key] = &cacheEntry{markup: markup, createdAt: c.now()}
	c.mu.Unlock()

	return markup
}

// pruneLocked drops expired entries, then the oldest entries until there is
// room for one more. The caller holds the write lock.
func (c *RenderCache) pruneLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
	for len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.createdAt.Before(oldest) {
				oldestKey, oldest = key, entry.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of entries currently in the cache (including expired ones).
func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries from the cache.
func (c *RenderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

func cacheKey(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}
