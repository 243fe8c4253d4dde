package config

import (
	"time"

	"github.com/snow-ghost/codeassist/pkg/cache"
	"github.com/snow-ghost/codeassist/pkg/limiter"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/tracing"
)

const (
	defaultListen  = ":8000"
	defaultBackend = "mock"
	defaultModel   = "gemini-2.5-flash"
	defaultDriver  = "sqlite"
	defaultDSN     = "codeassist.db"
)

// NewDefaultConfig returns a Config with working defaults for local use.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          defaultListen,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    150 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Backend:      defaultBackend,
			Model:        defaultModel,
			Temperature:  0.2,
			MaxTokens:    2048,
			Timeout:      45 * time.Second,
			MaxRetries:   2,
			Limits:       limiter.Limits{RPM: 60},
			Cache:        *cache.DefaultCacheConfig(),
			CacheEnabled: true,
		},
		Store: StoreConfig{
			Driver: defaultDriver,
			DSN:    defaultDSN,
		},
		Routing: RoutingConfig{
			InvokeTimeout:   60 * time.Second,
			FallbackTimeout: 60 * time.Second,
		},
		Context: ContextConfig{
			Messages:    5,
			Memories:    5,
			TokenBudget: 3000,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: tracing.Config{
			ServiceName:    "codeassist",
			ServiceVersion: "dev",
			Environment:    "local",
		},
	}
}
