// Package config loads service settings from defaults, an optional YAML file
// and CODEASSIST_* environment variables, in increasing precedence.
package config

import (
	"time"

	"github.com/snow-ghost/codeassist/pkg/cache"
	"github.com/snow-ghost/codeassist/pkg/limiter"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/tracing"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	LLM     LLMConfig      `mapstructure:"llm"`
	Store   StoreConfig    `mapstructure:"store"`
	Routing RoutingConfig  `mapstructure:"routing"`
	Context ContextConfig  `mapstructure:"context"`
	Log     logging.Config `mapstructure:"log"`
	Tracing tracing.Config `mapstructure:"tracing"`

	// AgentsFile points at optional per-agent overrides (registry.Loader).
	AgentsFile string `mapstructure:"agents_file"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig selects and tunes the text-generation backend.
type LLMConfig struct {
	Backend     string        `mapstructure:"backend"` // openai | gemini | ollama | mock
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`

	Limits limiter.Limits    `mapstructure:"limits"`
	Cache  cache.CacheConfig `mapstructure:"cache"`

	CacheEnabled bool `mapstructure:"cache_enabled"`
}

// StoreConfig selects persistence.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory | sqlite | sqlite3
	DSN    string `mapstructure:"dsn"`
}

// RoutingConfig bounds provider invocation and fallback generation.
type RoutingConfig struct {
	InvokeTimeout   time.Duration `mapstructure:"invoke_timeout"`
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
}

// ContextConfig shapes the conversation context handed to providers.
type ContextConfig struct {
	Messages    int `mapstructure:"messages"`
	Memories    int `mapstructure:"memories"`
	TokenBudget int `mapstructure:"token_budget"`
}
