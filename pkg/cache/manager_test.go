package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *CacheManager {
	t.Helper()
	cm, err := NewCacheManager(&CacheConfig{MaxSize: 16, DefaultTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(cm.Close)
	return cm
}

func TestCacheManagerGetOrGenerate(t *testing.T) {
	cm := newTestManager(t)
	req := KeyRequest{Backend: "mock", Model: "m", Prompt: "write a function"}

	calls := 0
	gen := func(context.Context) (string, error) {
		calls++
		return "func f() {}", nil
	}

	out, hit, err := cm.GetOrGenerate(context.Background(), req, gen)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "func f() {}", out)

	out, hit, err = cm.GetOrGenerate(context.Background(), req, gen)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "func f() {}", out)
	assert.Equal(t, 1, calls)

	cm.Invalidate(req)
	_, hit, _ = cm.GetOrGenerate(context.Background(), req, gen)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestCacheManagerSkipsFailuresAndEmpty(t *testing.T) {
	cm := newTestManager(t)
	req := KeyRequest{Backend: "mock", Prompt: "p"}

	_, _, err := cm.GetOrGenerate(context.Background(), req, func(context.Context) (string, error) {
		return "", errors.New("upstream down")
	})
	require.Error(t, err)

	_, _, err = cm.GetOrGenerate(context.Background(), req, func(context.Context) (string, error) {
		return "", nil
	})
	require.NoError(t, err)

	_, hit, _ := cm.GetOrGenerate(context.Background(), req, func(context.Context) (string, error) {
		return "now", nil
	})
	assert.False(t, hit)
}

func TestDeduplicatorCollapsesConcurrentCalls(t *testing.T) {
	d := NewDeduplicator()
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := d.Execute(context.Background(), "same", func(context.Context) (string, error) {
				calls.Add(1)
				<-release
				return "shared", nil
			})
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}

	assert.Eventually(t, func() bool { return d.Stats().Requests == 5 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
	assert.Equal(t, int64(5), d.Stats().Deduplicated)
}

func TestDeduplicatorContextCancel(t *testing.T) {
	d := NewDeduplicator()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Execute(ctx, "slow", func(context.Context) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeduplicatorSharedCallOutlivesFirstCaller(t *testing.T) {
	d := NewDeduplicator()
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "shared", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.Execute(first, "same", fn)
		firstErr <- err
	}()
	<-started

	secondOut := make(chan string, 1)
	secondErr := make(chan error, 1)
	go func() {
		out, err := d.Execute(context.Background(), "same", fn)
		secondOut <- out
		secondErr <- err
	}()
	assert.Eventually(t, func() bool { return d.Stats().Requests == 2 }, time.Second, time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, "shared", <-secondOut)
	assert.NoError(t, <-secondErr)
}
