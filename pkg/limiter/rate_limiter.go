package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// avgTokensPerPrompt converts a TPM budget into requests per minute.
const avgTokensPerPrompt = 400.0

// RateLimiter hands out one token bucket per generation backend.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetLimiter returns or creates the bucket for backend
func (rl *RateLimiter) GetLimiter(backend string, limits Limits) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[backend]; exists {
		return limiter
	}

	perMinute := requestsPerMinute(limits)
	burst := int(perMinute / 10.0)
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
	rl.limiters[backend] = limiter
	return limiter
}

// requestsPerMinute picks the more restrictive of the RPM and TPM budgets.
func requestsPerMinute(limits Limits) float64 {
	rpm := float64(limits.RPM)
	tpmAsRPM := float64(limits.TPM) / avgTokensPerPrompt

	switch {
	case rpm > 0 && tpmAsRPM > 0:
		if rpm < tpmAsRPM {
			return rpm
		}
		return tpmAsRPM
	case rpm > 0:
		return rpm
	case tpmAsRPM > 0:
		return tpmAsRPM
	default:
		return 1000.0
	}
}

// Wait blocks until backend may be called or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context, backend string, limits Limits) error {
	if err := rl.GetLimiter(backend, limits).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Allow checks if the request is allowed without waiting
func (rl *RateLimiter) Allow(backend string, limits Limits) bool {
	return rl.GetLimiter(backend, limits).AllowN(time.Now(), 1)
}

// GetStats returns rate limiter statistics for a backend
func (rl *RateLimiter) GetStats(backend string, limits Limits) map[string]interface{} {
	limiter := rl.GetLimiter(backend, limits)

	return map[string]interface{}{
		"backend": backend,
		"limit":   float64(limiter.Limit()),
		"burst":   limiter.Burst(),
		"tokens":  limiter.Tokens(),
		"rpm":     limits.RPM,
		"tpm":     limits.TPM,
	}
}

// Reset drops the bucket for backend
func (rl *RateLimiter) Reset(backend string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.limiters, backend)
}
