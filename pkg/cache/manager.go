package cache

import (
	"context"
	"fmt"
	"time"
)

// CacheManager fronts completion calls with the LRU cache and the deduplicator
type CacheManager struct {
	cache        *LRUCache
	deduplicator *Deduplicator
	config       *CacheConfig
}

// NewCacheManager creates a new cache manager
func NewCacheManager(config *CacheConfig) (*CacheManager, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	cache, err := NewLRUCache(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CacheManager{
		cache:        cache,
		deduplicator: NewDeduplicator(),
		config:       config,
	}, nil
}

// GetOrGenerate returns the cached response for req, or runs fn once across
// concurrent identical callers and caches a successful non-empty result.
// hit reports whether the answer came from the cache. fn runs under a context
// that outlives any single caller; see Deduplicator.Execute.
func (cm *CacheManager) GetOrGenerate(ctx context.Context, req KeyRequest, fn func(context.Context) (string, error)) (response string, hit bool, err error) {
	key, err := GenerateKey(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate cache key: %w", err)
	}

	if entry, ok := cm.cache.Get(key); ok {
		return entry.Response, true, nil
	}

	response, err = cm.deduplicator.Execute(ctx, key, func(ctx context.Context) (string, error) {
		out, err := fn(ctx)
		if err != nil {
			return "", err
		}
		if out != "" {
			cm.cache.Set(key, out, cm.config.DefaultTTL)
		}
		return out, nil
	})
	return response, false, err
}

// Invalidate drops the cached answer for req
func (cm *CacheManager) Invalidate(req KeyRequest) {
	if key, err := GenerateKey(req); err == nil {
		cm.cache.Delete(key)
	}
}

// Clear removes all values from the cache
func (cm *CacheManager) Clear() {
	cm.cache.Clear()
}

// TTL returns the configured entry lifetime
func (cm *CacheManager) TTL() time.Duration {
	return cm.config.DefaultTTL
}

// Stats returns cache and deduplication statistics
func (cm *CacheManager) Stats() map[string]interface{} {
	cacheStats := cm.cache.Stats()
	dedup := cm.deduplicator.Stats()

	return map[string]interface{}{
		"cache": cacheStats,
		"deduplication": map[string]interface{}{
			"requests":     dedup.Requests,
			"deduplicated": dedup.Deduplicated,
			"rate":         cm.deduplicator.DedupRate(),
		},
	}
}

// Close releases background resources
func (cm *CacheManager) Close() {
	cm.cache.Close()
}
