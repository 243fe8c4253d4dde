package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, NewDefaultConfig(), cfg)
	assert.Equal(t, "mock", cfg.LLM.Backend)
	assert.Equal(t, 60*time.Second, cfg.Routing.InvokeTimeout)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Listen)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codeassist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  backend: ollama
  model: llama3.2
  base_url: http://localhost:11434
  limits:
    rpm: 30
  cache:
    ttl: 2m
store:
  driver: memory
routing:
  invoke_timeout: 5s
`), 0o644))

	t.Setenv("CODEASSIST_ROUTING_FALLBACK_TIMEOUT", "7s")
	t.Setenv("CODEASSIST_LLM_MODEL", "codellama")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, "codellama", cfg.LLM.Model)
	assert.Equal(t, 30, cfg.LLM.Limits.RPM)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Cache.DefaultTTL)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Routing.InvokeTimeout)
	assert.Equal(t, 7*time.Second, cfg.Routing.FallbackTimeout)
	assert.Equal(t, 5, cfg.Context.Messages)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.LLM.Backend = "gpt-j" }},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"zero timeout", func(c *Config) { c.Routing.InvokeTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, NewDefaultConfig().Validate())
}
