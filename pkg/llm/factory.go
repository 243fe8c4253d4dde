package llm

import (
	"fmt"

	"github.com/snow-ghost/codeassist/pkg/cache"
	"github.com/snow-ghost/codeassist/pkg/config"
	"github.com/snow-ghost/codeassist/pkg/limiter"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/metrics"
	"github.com/snow-ghost/codeassist/pkg/tracing"
)

// NewBackend builds the raw generator named by cfg.Backend.
func NewBackend(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Backend {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm backend %s requires an api key", cfg.Backend)
		}
		return NewOpenAIGenerator(OpenAIOptions{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm backend %s requires an api key", cfg.Backend)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GeminiOpenAIBaseURL
		}
		return NewOpenAIGenerator(OpenAIOptions{
			Backend:     "gemini",
			BaseURL:     baseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case "mock":
		return NewMockGenerator(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}

// NewGenerator builds the configured backend wrapped in a GuardedGenerator.
// m, logger and tracer may be nil.
func NewGenerator(cfg config.LLMConfig, m *metrics.PrometheusMetrics, logger *logging.Logger, tracer *tracing.Tracer) (*GuardedGenerator, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	var cm *cache.CacheManager
	if cfg.CacheEnabled {
		cacheCfg := cfg.Cache
		cm, err = cache.NewCacheManager(&cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("creating generation cache: %w", err)
		}
	}

	retry := limiter.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	return NewGuardedGenerator(backend, GuardOptions{
		Timeout: cfg.Timeout,
		Limits:  cfg.Limits,
		Retry:   retry,
		Cache:   cm,
		Metrics: m,
		Logger:  logger,
		Tracer:  tracer,
	}), nil
}

// Close releases resources held by the guard.
func (g *GuardedGenerator) Close() {
	if g.cache != nil {
		g.cache.Close()
	}
}
