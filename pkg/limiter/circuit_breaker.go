package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// StateChangeFunc observes breaker transitions.
type StateChangeFunc func(name string, from, to gobreaker.State)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultCircuitBreakerConfig opens once at least half of five or more requests failed.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
}

// configFor tunes the default to the backend's advertised throughput.
func configFor(backend string, limits Limits) *CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig("llm-" + backend)
	if limits.generous() {
		cfg.MaxRequests = 5
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		}
		return cfg
	}
	cfg.MaxRequests = 2
	cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.4
	}
	return cfg
}

// CircuitBreakerManager keeps one breaker per generation backend
type CircuitBreakerManager struct {
	breakers      map[string]*gobreaker.CircuitBreaker
	onStateChange StateChangeFunc
	mu            sync.Mutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager.
// onStateChange may be nil.
func NewCircuitBreakerManager(onStateChange StateChangeFunc) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers:      make(map[string]*gobreaker.CircuitBreaker),
		onStateChange: onStateChange,
	}
}

// GetBreaker returns or creates the breaker for backend
func (cbm *CircuitBreakerManager) GetBreaker(backend string, limits Limits) *gobreaker.CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[backend]; exists {
		return breaker
	}

	cfg := configFor(backend, limits)
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
	}
	if cbm.onStateChange != nil {
		settings.OnStateChange = cbm.onStateChange
	}

	breaker := gobreaker.NewCircuitBreaker(settings)
	cbm.breakers[backend] = breaker
	return breaker
}

// Execute runs fn through the backend's breaker
func (cbm *CircuitBreakerManager) Execute(ctx context.Context, backend string, limits Limits, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := cbm.GetBreaker(backend, limits).Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker execution failed: %w", err)
	}
	return result, nil
}

// GetState returns the current state of a backend's breaker
func (cbm *CircuitBreakerManager) GetState(backend string, limits Limits) gobreaker.State {
	return cbm.GetBreaker(backend, limits).State()
}

// IsOpen checks if the circuit breaker is open for a backend
func (cbm *CircuitBreakerManager) IsOpen(backend string, limits Limits) bool {
	return cbm.GetState(backend, limits) == gobreaker.StateOpen
}

// GetStats returns circuit breaker statistics for a backend
func (cbm *CircuitBreakerManager) GetStats(backend string, limits Limits) map[string]interface{} {
	breaker := cbm.GetBreaker(backend, limits)
	counts := breaker.Counts()

	return map[string]interface{}{
		"backend":              backend,
		"state":                breaker.State().String(),
		"requests":             counts.Requests,
		"total_success":        counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

// Reset drops the breaker for backend
func (cbm *CircuitBreakerManager) Reset(backend string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	delete(cbm.breakers, backend)
}
