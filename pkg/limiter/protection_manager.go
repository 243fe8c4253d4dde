package limiter

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
)

// ProtectionManager chains rate limiting, circuit breaking and retries
// for calls to one generation backend.
type ProtectionManager struct {
	backend        string
	limits         Limits
	rateLimiter    *RateLimiter
	retryManager   *RetryManager
	circuitBreaker *CircuitBreakerManager
}

// NewProtectionManager creates a new protection manager. Nil parts get defaults.
func NewProtectionManager(backend string, limits Limits, retry *RetryManager, breakers *CircuitBreakerManager) *ProtectionManager {
	if retry == nil {
		retry = NewRetryManager(nil)
	}
	if breakers == nil {
		breakers = NewCircuitBreakerManager(nil)
	}
	return &ProtectionManager{
		backend:        backend,
		limits:         limits,
		rateLimiter:    NewRateLimiter(),
		retryManager:   retry,
		circuitBreaker: breakers,
	}
}

// Execute runs fn once the rate limiter admits it, inside the breaker, with retries.
// The breaker sees one failure per exhausted retry loop, not one per attempt.
func (pm *ProtectionManager) Execute(ctx context.Context, fn RetryableFunc) (interface{}, error) {
	if pm.circuitBreaker.IsOpen(pm.backend, pm.limits) {
		return nil, fmt.Errorf("backend %s: %w", pm.backend, gobreaker.ErrOpenState)
	}

	if err := pm.rateLimiter.Wait(ctx, pm.backend, pm.limits); err != nil {
		return nil, fmt.Errorf("rate limiting failed: %w", err)
	}

	result, err := pm.circuitBreaker.Execute(ctx, pm.backend, pm.limits, func() (interface{}, error) {
		return pm.retryManager.Execute(ctx, fn)
	})
	if err != nil {
		return nil, fmt.Errorf("protected execution failed: %w", err)
	}
	return result, nil
}

// Available reports whether a call would be admitted right now
func (pm *ProtectionManager) Available() bool {
	if pm.circuitBreaker.IsOpen(pm.backend, pm.limits) {
		return false
	}
	return pm.rateLimiter.GetLimiter(pm.backend, pm.limits).Tokens() >= 1
}

// GetStats returns statistics for all protection mechanisms
func (pm *ProtectionManager) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"backend":         pm.backend,
		"rate_limiter":    pm.rateLimiter.GetStats(pm.backend, pm.limits),
		"circuit_breaker": pm.circuitBreaker.GetStats(pm.backend, pm.limits),
		"retry_config": map[string]interface{}{
			"max_retries":      pm.retryManager.config.MaxRetries,
			"base_delay":       pm.retryManager.config.BaseDelay.String(),
			"retryable_errors": pm.retryManager.config.RetryableErrors,
		},
	}
}

// Reset clears limiter and breaker state
func (pm *ProtectionManager) Reset() {
	pm.rateLimiter.Reset(pm.backend)
	pm.circuitBreaker.Reset(pm.backend)
}
