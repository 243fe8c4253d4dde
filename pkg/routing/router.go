// Package routing picks a provider for each prompt and guarantees an answer.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/llm"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/metrics"
	"github.com/snow-ghost/codeassist/pkg/registry"
	"github.com/snow-ghost/codeassist/pkg/scoring"
	"github.com/snow-ghost/codeassist/pkg/tracing"
)

// Provider names reported for answers not produced by a registered provider.
const (
	FallbackProviderName = "fallback"
	RouterProviderName   = "router"
)

// Path labels for metrics and logs.
const (
	PathDispatch = "dispatch"
	PathFallback = "fallback"
	PathTerminal = "terminal"
)

// Fallback reasons.
const (
	ReasonNoMatch        = "no_match"
	ReasonProviderFailed = "provider_failed"
)

// Config bounds the two blocking stages of a routing call.
type Config struct {
	InvokeTimeout   time.Duration
	FallbackTimeout time.Duration
}

// DefaultConfig returns a default router configuration
func DefaultConfig() Config {
	return Config{
		InvokeTimeout:   60 * time.Second,
		FallbackTimeout: 60 * time.Second,
	}
}

// Option customizes a Router.
type Option func(*Router)

func WithConfig(cfg Config) Option {
	return func(r *Router) { r.cfg = cfg }
}

func WithLogger(l *logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(r *Router) { r.metrics = m }
}

func WithTracer(t *tracing.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithRanker adds a second ranking stage after keyword scoring.
func WithRanker(rk scoring.Ranker) Option {
	return func(r *Router) { r.ranker = rk }
}

// Router ranks providers, invokes the best one and falls back to direct
// generation, then to a fixed guidance message. It holds no per-call state.
type Router struct {
	scorer    *scoring.Scorer
	generator core.TextGenerator
	cfg       Config
	logger    *logging.Logger
	metrics   *metrics.PrometheusMetrics
	tracer    *tracing.Tracer
	ranker    scoring.Ranker
}

// NewRouter creates a router over the rankable providers of reg.
func NewRouter(reg *registry.Registry, generator core.TextGenerator, opts ...Option) *Router {
	r := &Router{
		generator: generator,
		cfg:       DefaultConfig(),
		logger:    logging.NewNop(),
		tracer:    tracing.Global(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if r.tracer == nil {
		r.tracer = tracing.Global()
	}
	if r.cfg.InvokeTimeout <= 0 {
		r.cfg.InvokeTimeout = DefaultConfig().InvokeTimeout
	}
	if r.cfg.FallbackTimeout <= 0 {
		r.cfg.FallbackTimeout = DefaultConfig().FallbackTimeout
	}
	r.scorer = scoring.NewScorer(reg, r.logger, scoring.WithRanker(r.ranker))
	return r
}

// Rank exposes the current ranking for a prompt.
func (r *Router) Rank(prompt string) []scoring.Candidate {
	return r.scorer.Rank(prompt)
}

// Route answers req. It never fails and never panics.
func (r *Router) Route(ctx context.Context, req core.Request) (result core.RouteResult) {
	start := time.Now()
	path := PathTerminal

	ctx, span := r.tracer.StartRouteSpan(ctx, req.SessionID, len(req.Prompt))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("routing panicked", "panic", fmt.Sprint(rec))
			result = terminal(nil)
			path = PathTerminal
		}
		r.record(ctx, result, path, time.Since(start))
	}()

	reason := ReasonNoMatch
	failed := ""

	if ranked := r.scorer.Rank(req.Prompt); len(ranked) > 0 {
		top := ranked[0]
		if r.metrics != nil {
			r.metrics.RecordCandidate(top.Provider.Name(), top.Score)
		}

		outcome, err := r.dispatch(ctx, top, req)
		if err == nil {
			path = PathDispatch
			return core.RouteResult{
				Outcome:    outcome,
				Provider:   top.Provider.Name(),
				Confidence: float64(top.Score),
			}
		}

		r.logger.LogDispatchFailure(ctx, top.Provider.Name(), err)
		if r.metrics != nil {
			r.metrics.RecordDispatchFailure(top.Provider.Name(), failureKind(err))
		}
		reason, failed = ReasonProviderFailed, top.Provider.Name()
	}

	r.logger.LogFallback(ctx, reason, failed)
	if r.metrics != nil {
		r.metrics.RecordFallback(reason)
	}

	outcome, err := r.fallback(ctx, req, reason, failed)
	if err == nil {
		path = PathFallback
		return core.RouteResult{Outcome: outcome, Provider: FallbackProviderName, Confidence: 0.0}
	}

	r.logger.Error("fallback generation failed", "error", err)
	tracing.RecordSpanError(span, err)
	return terminal(err)
}

// dispatch invokes one candidate under the invoke timeout. Errors, panics,
// timeouts and empty responses all count as failure.
func (r *Router) dispatch(ctx context.Context, c scoring.Candidate, req core.Request) (core.Outcome, error) {
	ctx, span := r.tracer.StartDispatchSpan(ctx, c.Provider.Name(), c.Score)
	defer span.End()

	invokeCtx, cancel := context.WithTimeout(ctx, r.cfg.InvokeTimeout)
	defer cancel()

	type result struct {
		outcome core.Outcome
		err     error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("provider panicked: %v", rec)}
			}
		}()
		outcome, err := c.Provider.Invoke(invokeCtx, req)
		done <- result{outcome: outcome, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-invokeCtx.Done():
		res = result{err: invokeCtx.Err()}
	}

	err := res.err
	switch {
	case err == nil && invokeCtx.Err() != nil:
		err = invokeCtx.Err()
	case err == nil && strings.TrimSpace(res.outcome.Response) == "":
		err = core.ErrEmptyResponse
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s", core.ErrInvocationTimeout, r.cfg.InvokeTimeout)
	}
	if err != nil {
		tracing.RecordSpanError(span, err)
		return core.Outcome{}, err
	}

	outcome := res.outcome
	if outcome.Reasoning == nil {
		outcome.Reasoning = &core.Reasoning{
			Rationale: fmt.Sprintf("Matched by score: %s scored %d for this prompt.", c.Provider.Name(), c.Score),
		}
	}
	tracing.RecordSpanSuccess(span)
	return outcome, nil
}

// fallback asks the text generator directly, under the fallback timeout.
func (r *Router) fallback(ctx context.Context, req core.Request, reason, failed string) (outcome core.Outcome, err error) {
	ctx, span := r.tracer.StartFallbackSpan(ctx, reason)
	defer span.End()

	if r.generator == nil {
		return core.Outcome{}, errors.New("no text generator configured")
	}

	genCtx, cancel := context.WithTimeout(ctx, r.cfg.FallbackTimeout)
	defer cancel()

	prompt := llm.AssistantPrompt(req.Prompt, req.History)
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("text generator panicked: %v", rec)}
			}
		}()
		text, err := r.generator.Complete(genCtx, prompt)
		done <- result{text: text, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-genCtx.Done():
		res = result{err: genCtx.Err()}
	}

	switch {
	case res.err != nil:
		err = res.err
	case genCtx.Err() != nil:
		err = genCtx.Err()
	case strings.TrimSpace(res.text) == "":
		err = core.ErrEmptyResponse
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", core.ErrInvocationTimeout, r.cfg.FallbackTimeout)
		}
		tracing.RecordSpanError(span, err)
		return core.Outcome{}, err
	}

	rationale := "No specialized provider matched the prompt confidently; answered by direct generation."
	if reason == ReasonProviderFailed {
		rationale = fmt.Sprintf("The matched provider %s failed; answered by direct generation.", failed)
	}

	tracing.RecordSpanSuccess(span)
	return core.Outcome{
		Response: res.text,
		Reasoning: &core.Reasoning{
			Rationale:   rationale,
			ToolInvoked: "text_generation",
			Observation: reason,
		},
		ToolUsages: []core.ToolUsage{
			{ToolName: "text_generation", Input: req.Prompt, Output: res.text},
		},
	}, nil
}

func (r *Router) record(ctx context.Context, result core.RouteResult, path string, d time.Duration) {
	r.logger.LogRoute(ctx, result.Provider, result.Confidence, path, d)
	if r.metrics != nil {
		r.metrics.RecordRoute(result.Provider, path, d)
	}
}

// terminal is the last-resort answer. A quota failure gets its own message.
func terminal(cause error) core.RouteResult {
	msg := core.GuidanceMessage
	if core.IsQuotaError(cause) {
		msg = core.QuotaExceededMessage
	}
	return core.RouteResult{
		Outcome:    core.Outcome{Response: msg},
		Provider:   RouterProviderName,
		Confidence: 0.0,
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, core.ErrInvocationTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, core.ErrEmptyResponse):
		return "empty"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case strings.HasPrefix(err.Error(), "provider panicked"):
		return "panic"
	default:
		return "error"
	}
}

// RouterProvider exposes a Router as a registry entry. It never ranks.
type RouterProvider struct {
	router *Router
}

// NewRouterProvider wraps r.
func NewRouterProvider(r *Router) *RouterProvider {
	return &RouterProvider{router: r}
}

func (p *RouterProvider) Name() string { return "RouterAgent" }

func (p *RouterProvider) Description() string {
	return "Routes a prompt to the best matching capability provider."
}

// Score is always zero so the router is never a routing candidate.
func (p *RouterProvider) Score(string) int { return 0 }

func (p *RouterProvider) TriggerTerms() []string {
	return []string{"route", "dispatch", "redirect"}
}

func (p *RouterProvider) Invoke(ctx context.Context, req core.Request) (core.Outcome, error) {
	return p.router.Route(ctx, req).Outcome, nil
}
