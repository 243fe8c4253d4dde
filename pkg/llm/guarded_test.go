package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/cache"
	"github.com/snow-ghost/codeassist/pkg/limiter"
	"github.com/snow-ghost/codeassist/pkg/metrics"
)

// scriptedBackend returns errs in order, then answer.
type scriptedBackend struct {
	mu     sync.Mutex
	errs   []error
	answer string
	delay  time.Duration
	calls  int
}

func (s *scriptedBackend) Backend() string { return "fake" }
func (s *scriptedBackend) Model() string   { return "fake-1" }

func (s *scriptedBackend) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return s.answer, nil
}

func (s *scriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastRetry() *limiter.RetryConfig {
	cfg := limiter.DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestGuardedGeneratorCachesResponses(t *testing.T) {
	backend := &scriptedBackend{answer: "func main() {}"}
	cm, err := cache.NewCacheManager(&cache.CacheConfig{MaxSize: 8, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer cm.Close()
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry())

	g := NewGuardedGenerator(backend, GuardOptions{
		Limits:  limiter.Limits{RPM: 600},
		Retry:   fastRetry(),
		Cache:   cm,
		Metrics: m,
	})

	for i := 0; i < 3; i++ {
		out, err := g.Complete(context.Background(), "write a go program")
		require.NoError(t, err)
		assert.Equal(t, "func main() {}", out)
	}

	assert.Equal(t, 1, backend.Calls())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("fake", "fake-1", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("fake", "fake-1", "cached")))
}

func TestGuardedGeneratorSharedCallSurvivesCancelledCaller(t *testing.T) {
	backend := &scriptedBackend{answer: "package main", delay: 100 * time.Millisecond}
	cm, err := cache.NewCacheManager(&cache.CacheConfig{MaxSize: 8, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer cm.Close()

	g := NewGuardedGenerator(backend, GuardOptions{
		Timeout: 2 * time.Second,
		Limits:  limiter.Limits{RPM: 600},
		Retry:   fastRetry(),
		Cache:   cm,
	})

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := g.Complete(first, "same prompt")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return backend.Calls() == 1 }, time.Second, time.Millisecond)

	type reply struct {
		out string
		err error
	}
	second := make(chan reply, 1)
	go func() {
		out, err := g.Complete(context.Background(), "same prompt")
		second <- reply{out, err}
	}()
	require.Eventually(t, func() bool {
		dedup := cm.Stats()["deduplication"].(map[string]interface{})
		return dedup["requests"].(int64) == 2
	}, time.Second, time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "package main", got.out)
	assert.Equal(t, 1, backend.Calls())
}

func TestGuardedGeneratorRetriesTransientFailures(t *testing.T) {
	backend := &scriptedBackend{
		errs:   []error{limiter.NewHTTPError(503, "unavailable", ""), limiter.NewHTTPError(502, "bad gateway", "")},
		answer: "ok",
	}
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry())
	g := NewGuardedGenerator(backend, GuardOptions{Limits: limiter.Limits{RPM: 600}, Retry: fastRetry(), Metrics: m})

	out, err := g.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, backend.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("fake", "http_503")))
}

func TestGuardedGeneratorQuotaSurvivesWrapping(t *testing.T) {
	quota := limiter.NewHTTPError(429, "quota exhausted", "")
	backend := &scriptedBackend{errs: []error{quota, quota, quota}}
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry())
	g := NewGuardedGenerator(backend, GuardOptions{Limits: limiter.Limits{RPM: 600}, Retry: fastRetry(), Metrics: m})

	_, err := g.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("fake", "fake-1", "quota")))
}

func TestGuardedGeneratorTimeout(t *testing.T) {
	backend := &scriptedBackend{answer: "late", delay: 200 * time.Millisecond}
	g := NewGuardedGenerator(backend, GuardOptions{
		Timeout: 10 * time.Millisecond,
		Limits:  limiter.Limits{RPM: 600},
		Retry:   fastRetry(),
	})

	_, err := g.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvocationTimeout)
	assert.Equal(t, 1, backend.Calls())
}

func TestGuardedGeneratorStats(t *testing.T) {
	g := NewGuardedGenerator(NewMockGenerator("m"), GuardOptions{})
	stats := g.Stats()
	assert.Equal(t, "mock", stats["backend"])
	assert.NotContains(t, stats, "cache")
	assert.True(t, g.Available())
}
