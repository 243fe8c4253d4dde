package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	cache, err := NewLRUCache(&CacheConfig{MaxSize: 10, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer cache.Close()

	key := CacheKey("test-key")
	cache.Set(key, "def add(a, b): return a + b", 0)

	entry, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "def add(a, b): return a + b", entry.Response)
	assert.Equal(t, 1, entry.AccessCount)

	_, ok = cache.Get("missing")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
}

func TestLRUCacheExpiration(t *testing.T) {
	cache, err := NewLRUCache(&CacheConfig{MaxSize: 10, DefaultTTL: 20 * time.Millisecond})
	require.NoError(t, err)
	defer cache.Close()

	cache.Set("k", "v", 0)
	time.Sleep(40 * time.Millisecond)

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Expirations)
	assert.Zero(t, cache.Len())
}

func TestLRUCacheJanitor(t *testing.T) {
	cache, err := NewLRUCache(&CacheConfig{MaxSize: 10, DefaultTTL: 10 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer cache.Close()

	cache.Set("k", "v", 0)
	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLRUCacheEviction(t *testing.T) {
	cache, err := NewLRUCache(&CacheConfig{MaxSize: 3, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer cache.Close()

	for i := 0; i < 5; i++ {
		cache.Set(CacheKey(fmt.Sprintf("k%d", i)), "v", 0)
	}

	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, int64(2), cache.Stats().Evictions)
	_, ok := cache.Get("k0")
	assert.False(t, ok)
	_, ok = cache.Get("k4")
	assert.True(t, ok)

	cache.Delete("k4")
	cache.Clear()
	assert.Zero(t, cache.Len())
	cache.Close()
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey(KeyRequest{Backend: "openai", Model: "gpt-4o-mini", Prompt: "explain this"})
	require.NoError(t, err)
	b, err := GenerateKey(KeyRequest{Backend: "openai", Model: "gpt-4o-mini", Prompt: "  explain this\n"})
	require.NoError(t, err)
	c, err := GenerateKey(KeyRequest{Backend: "ollama", Model: "gpt-4o-mini", Prompt: "explain this"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, string(a), 64)
}
