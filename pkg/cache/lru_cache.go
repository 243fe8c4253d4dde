package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a size-bounded completion cache with per-entry TTL
type LRUCache struct {
	cache    *lru.Cache[CacheKey, *CacheEntry]
	config   *CacheConfig
	stats    CacheStats
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewLRUCache creates a new LRU cache and starts its janitor
func NewLRUCache(config *CacheConfig) (*LRUCache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	cache, err := lru.New[CacheKey, *CacheEntry](config.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	c := &LRUCache{
		cache:    cache,
		config:   config,
		stats:    CacheStats{MaxSize: config.MaxSize},
		stopChan: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go c.cleanup()
	}

	return c, nil
}

// Get retrieves a live entry
func (c *LRUCache) Get(key CacheKey) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.cache.Get(key)
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	if entry.IsExpired() {
		c.cache.Remove(key)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}

	entry.Touch()
	c.stats.Hits++
	return entry, true
}

// Set stores a response. A non-positive ttl uses the configured default.
func (c *LRUCache) Set(key CacheKey, response string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	now := time.Now()
	evicted := c.cache.Add(key, &CacheEntry{
		Response:     response,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	})
	if evicted {
		c.stats.Evictions++
	}
}

// Delete removes a value from the cache
func (c *LRUCache) Delete(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(key)
}

// Clear removes all values from the cache
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
}

// Stats returns cache statistics
func (c *LRUCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.cache.Len()
	stats.CalculateHitRate()
	return stats
}

// Len returns the number of items in the cache
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cache.Len()
}

// Close stops the janitor. Safe to call more than once.
func (c *LRUCache) Close() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *LRUCache) cleanup() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *LRUCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.cache.Keys() {
		if entry, exists := c.cache.Peek(key); exists && entry.IsExpired() {
			c.cache.Remove(key)
			c.stats.Expirations++
		}
	}
}
