package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CODEASSIST_LLM_BACKEND.
const EnvPrefix = "CODEASSIST"

// InitViper creates a viper instance with defaults, the optional YAML file at
// path and environment bindings. A missing file is not an error.
func InitViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load resolves the effective configuration.
func Load(path string) (*Config, error) {
	v, err := InitViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes v into a validated Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case "openai", "gemini", "ollama", "mock":
	default:
		return fmt.Errorf("unknown llm backend %q", c.LLM.Backend)
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Routing.InvokeTimeout <= 0 || c.Routing.FallbackTimeout <= 0 {
		return errors.New("routing timeouts must be positive")
	}
	return nil
}

// setViperDefaults registers every default under its dotted key so that
// AutomaticEnv can override keys that never appear in a file.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("agents_file", d.AgentsFile)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("llm.backend", d.LLM.Backend)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.limits.rpm", d.LLM.Limits.RPM)
	v.SetDefault("llm.limits.tpm", d.LLM.Limits.TPM)
	v.SetDefault("llm.cache.max_size", d.LLM.Cache.MaxSize)
	v.SetDefault("llm.cache.ttl", d.LLM.Cache.DefaultTTL)
	v.SetDefault("llm.cache.cleanup_interval", d.LLM.Cache.CleanupInterval)
	v.SetDefault("llm.cache_enabled", d.LLM.CacheEnabled)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("routing.invoke_timeout", d.Routing.InvokeTimeout)
	v.SetDefault("routing.fallback_timeout", d.Routing.FallbackTimeout)

	v.SetDefault("context.messages", d.Context.Messages)
	v.SetDefault("context.memories", d.Context.Memories)
	v.SetDefault("context.token_budget", d.Context.TokenBudget)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)

	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.service_version", d.Tracing.ServiceVersion)
	v.SetDefault("tracing.jaeger_endpoint", d.Tracing.JaegerEndpoint)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
}
