package limiter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/codeassist/core"
)

func fastRetry(maxRetries int) *RetryConfig {
	config := DefaultRetryConfig()
	config.MaxRetries = maxRetries
	config.BaseDelay = time.Millisecond
	config.Jitter = false
	return config
}

func TestRetryManager(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		failures     int
		failWith     error
		wantAttempts int
		wantErr      bool
	}{
		{"success first try", 2, 0, nil, 1, false},
		{"recovers after 429s", 3, 2, NewHTTPError(429, "Rate limited", ""), 3, false},
		{"max retries exceeded", 2, 10, NewHTTPError(503, "Unavailable", ""), 3, true},
		{"non retryable status", 3, 10, NewHTTPError(400, "Bad request", ""), 1, true},
		{"plain error", 3, 10, errors.New("boom"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewRetryManager(fastRetry(tt.maxRetries))
			attempts := 0
			result, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
				attempts++
				if attempts <= tt.failures {
					return nil, tt.failWith
				}
				return "success", nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "success", result)
		})
	}
}

func TestRetryManagerContextCancellation(t *testing.T) {
	config := fastRetry(3)
	config.BaseDelay = 100 * time.Millisecond
	rm := NewRetryManager(config)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	_, err := rm.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, NewHTTPError(429, "Rate limited", "")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestRetryManagerOnRetryHook(t *testing.T) {
	var seen []int
	rm := NewRetryManager(fastRetry(2)).OnRetry(func(attempt int, err error) {
		seen = append(seen, attempt)
	})

	_, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, fmt.Errorf("wrapped: %w", NewHTTPError(502, "Bad gateway", ""))
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestHTTPErrorQuota(t *testing.T) {
	err := NewHTTPError(429, "Rate limited", "Too many requests")
	assert.Equal(t, "HTTP 429: Rate limited", err.Error())
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.ErrorIs(t, fmt.Errorf("max retries exceeded: %w", err), core.ErrQuotaExceeded)

	assert.NotErrorIs(t, NewHTTPError(500, "oops", ""), core.ErrQuotaExceeded)
}

func TestIsRetryableHTTPError(t *testing.T) {
	for code, want := range map[int]bool{200: false, 400: false, 429: true, 500: true, 502: true, 503: true, 504: true} {
		assert.Equal(t, want, IsRetryableHTTPError(code), "status %d", code)
	}
}
