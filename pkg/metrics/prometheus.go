package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// Routing metrics
	RoutesTotal     *prometheus.CounterVec
	RouteLatency    *prometheus.HistogramVec
	FallbacksTotal  *prometheus.CounterVec
	DispatchFailure *prometheus.CounterVec
	CandidateScore  *prometheus.HistogramVec

	// Text generation metrics
	GenerationsTotal  *prometheus.CounterVec
	GenerationLatency *prometheus.HistogramVec
	TokensTotal       *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Retry and circuit breaker metrics
	RetriesTotal      *prometheus.CounterVec
	CircuitStateTotal *prometheus.CounterVec
}

// NewPrometheusMetrics registers the collectors on reg. A nil reg registers nowhere,
// which keeps tests free of duplicate-registration panics.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		RoutesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_routes_total",
				Help: "Total number of routed prompts by handling provider and path",
			},
			[]string{"provider", "path"},
		),

		RouteLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeassist_route_latency_seconds",
				Help:    "End-to-end routing latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_fallbacks_total",
				Help: "Total number of direct-generation fallbacks by reason",
			},
			[]string{"reason"},
		),

		DispatchFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_dispatch_failures_total",
				Help: "Total number of provider invocation failures",
			},
			[]string{"provider", "kind"},
		),

		CandidateScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeassist_candidate_score",
				Help:    "Score of the top ranked candidate",
				Buckets: []float64{1, 2, 3, 5, 8, 10, 15},
			},
			[]string{"provider"},
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_generations_total",
				Help: "Total number of text generation calls",
			},
			[]string{"backend", "model", "status"},
		),

		GenerationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeassist_generation_latency_seconds",
				Help:    "Text generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "model"},
		),

		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_tokens_total",
				Help: "Estimated tokens sent to and received from the generation backend",
			},
			[]string{"backend", "model", "direction"},
		),

		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codeassist_cache_hits_total",
				Help: "Total number of generation cache hits",
			},
		),

		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codeassist_cache_misses_total",
				Help: "Total number of generation cache misses",
			},
		),

		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_retries_total",
				Help: "Total number of generation retries",
			},
			[]string{"backend", "reason"},
		),

		CircuitStateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeassist_circuit_transitions_total",
				Help: "Circuit breaker transitions by target state",
			},
			[]string{"breaker", "state"},
		),
	}
}

// RecordRoute records a finished routing decision
func (m *PrometheusMetrics) RecordRoute(provider, path string, duration time.Duration) {
	m.RoutesTotal.WithLabelValues(provider, path).Inc()
	m.RouteLatency.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordFallback records a transition to direct generation
func (m *PrometheusMetrics) RecordFallback(reason string) {
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordDispatchFailure records a failed provider invocation
func (m *PrometheusMetrics) RecordDispatchFailure(provider, kind string) {
	m.DispatchFailure.WithLabelValues(provider, kind).Inc()
}

// RecordCandidate records the score of the dispatched candidate
func (m *PrometheusMetrics) RecordCandidate(provider string, score int) {
	m.CandidateScore.WithLabelValues(provider).Observe(float64(score))
}

// RecordGeneration records a text generation call
func (m *PrometheusMetrics) RecordGeneration(backend, model, status string, duration time.Duration) {
	m.GenerationsTotal.WithLabelValues(backend, model, status).Inc()
	m.GenerationLatency.WithLabelValues(backend, model).Observe(duration.Seconds())
}

// RecordTokens records token estimates for a generation call
func (m *PrometheusMetrics) RecordTokens(backend, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		m.TokensTotal.WithLabelValues(backend, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensTotal.WithLabelValues(backend, model, "output").Add(float64(outputTokens))
	}
}

// RecordCacheHit records a cache hit
func (m *PrometheusMetrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func (m *PrometheusMetrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// RecordRetry records a retry
func (m *PrometheusMetrics) RecordRetry(backend, reason string) {
	m.RetriesTotal.WithLabelValues(backend, reason).Inc()
}

// RecordCircuitState records a circuit breaker transition
func (m *PrometheusMetrics) RecordCircuitState(breaker, state string) {
	m.CircuitStateTotal.WithLabelValues(breaker, state).Inc()
}
