package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/cache"
	"github.com/snow-ghost/codeassist/pkg/limiter"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/metrics"
	"github.com/snow-ghost/codeassist/pkg/tokens"
	"github.com/snow-ghost/codeassist/pkg/tracing"
)

// GuardOptions configures a GuardedGenerator. Every field is optional.
type GuardOptions struct {
	Timeout time.Duration
	Limits  limiter.Limits
	Retry   *limiter.RetryConfig
	Cache   *cache.CacheManager
	Metrics *metrics.PrometheusMetrics
	Logger  *logging.Logger
	Tracer  *tracing.Tracer
}

// GuardedGenerator adds per-call timeout, rate limiting, retries, circuit
// breaking, response caching and observability around a Generator.
type GuardedGenerator struct {
	inner      Generator
	protection *limiter.ProtectionManager
	cache      *cache.CacheManager
	metrics    *metrics.PrometheusMetrics
	logger     *logging.Logger
	tracer     *tracing.Tracer
	encoder    tokens.Encoder
	timeout    time.Duration
}

// NewGuardedGenerator wraps inner.
func NewGuardedGenerator(inner Generator, opts GuardOptions) *GuardedGenerator {
	g := &GuardedGenerator{
		inner:   inner,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		encoder: tokens.ForModel(inner.Model()),
		timeout: opts.Timeout,
	}
	if g.logger == nil {
		g.logger = logging.NewNop()
	}
	if g.tracer == nil {
		g.tracer = tracing.Global()
	}

	retry := limiter.NewRetryManager(opts.Retry).OnRetry(func(attempt int, err error) {
		g.logger.Warn("retrying text generation", "backend", inner.Backend(), "attempt", attempt, "error", err)
		if g.metrics != nil {
			g.metrics.RecordRetry(inner.Backend(), retryReason(err))
		}
	})
	breakers := limiter.NewCircuitBreakerManager(func(name string, from, to gobreaker.State) {
		g.logger.LogCircuitBreaker(name, from.String(), to.String())
		if g.metrics != nil {
			g.metrics.RecordCircuitState(name, to.String())
		}
	})
	g.protection = limiter.NewProtectionManager(inner.Backend(), opts.Limits, retry, breakers)

	return g
}

func (g *GuardedGenerator) Backend() string { return g.inner.Backend() }
func (g *GuardedGenerator) Model() string   { return g.inner.Model() }

// Complete implements core.TextGenerator.
func (g *GuardedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.StartGenerationSpan(ctx, g.Backend(), g.Model())
	defer span.End()

	start := time.Now()
	var (
		out string
		hit bool
		err error
	)
	if g.cache != nil {
		out, hit, err = g.cache.GetOrGenerate(ctx, cache.KeyRequest{
			Backend: g.Backend(),
			Model:   g.Model(),
			Prompt:  prompt,
		}, func(shared context.Context) (string, error) {
			return g.call(shared, prompt)
		})
		if g.metrics != nil {
			if hit {
				g.metrics.RecordCacheHit()
			} else {
				g.metrics.RecordCacheMiss()
			}
		}
	} else {
		out, err = g.call(ctx, prompt)
	}
	duration := time.Since(start)

	status := generationStatus(err, hit)
	inputTokens, outputTokens := g.encoder.Count(prompt), g.encoder.Count(out)
	if g.metrics != nil {
		g.metrics.RecordGeneration(g.Backend(), g.Model(), status, duration)
		if !hit {
			g.metrics.RecordTokens(g.Backend(), g.Model(), inputTokens, outputTokens)
		}
	}
	g.logger.LogGeneration(ctx, g.Backend(), g.Model(), status, duration, inputTokens+outputTokens)
	tracing.RecordSpanTokens(span, inputTokens, outputTokens)

	if err != nil {
		tracing.RecordSpanError(span, err)
		return "", err
	}
	tracing.RecordSpanSuccess(span)
	return out, nil
}

func (g *GuardedGenerator) call(ctx context.Context, prompt string) (string, error) {
	res, err := g.protection.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		out, err := g.inner.Complete(callCtx, prompt)
		if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", core.ErrInvocationTimeout, g.timeout, err)
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// Stats exposes protection and cache statistics.
func (g *GuardedGenerator) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"backend":    g.Backend(),
		"model":      g.Model(),
		"protection": g.protection.GetStats(),
	}
	if g.cache != nil {
		stats["cache"] = g.cache.Stats()
	}
	return stats
}

// Available reports whether a call would currently be admitted.
func (g *GuardedGenerator) Available() bool {
	return g.protection.Available()
}

func generationStatus(err error, hit bool) string {
	switch {
	case err == nil && hit:
		return "cached"
	case err == nil:
		return "success"
	case core.IsQuotaError(err):
		return "quota"
	case errors.Is(err, core.ErrInvocationTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	default:
		return "error"
	}
}

func retryReason(err error) string {
	var httpErr *limiter.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("http_%d", httpErr.StatusCode)
	}
	return "error"
}
