package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	agentsPath := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(agentsPath, []byte(`
agents:
  - key: code_explainer
    disabled: true
  - key: bug_fixer
    trigger_terms: [fix, crash]
`), 0o644))

	cfgPath := filepath.Join(dir, "codeassist.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
agents_file: `+agentsPath+`
llm:
  backend: mock
store:
  driver: memory
log:
  level: error
  output: stderr
`), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAgentsCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "agents", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "code_generator")
	assert.Contains(t, out, "fix, crash")
	assert.Contains(t, out, "router")
	assert.NotContains(t, out, "code_explainer")

	out, err = run(t, "agents", "--config", cfg, "--rank", "fix the crash in this code")
	require.NoError(t, err)
	assert.Contains(t, out, "bug_fixer")
}

func TestAskCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "ask", "--config", cfg, "write", "a", "function")
	require.NoError(t, err)
	assert.Contains(t, out, "[CodeGenerator, confidence 2.0]")

	out, err = run(t, "ask", "--config", cfg, "--session", "s1", "remember that I like Go")
	require.NoError(t, err)
	assert.Contains(t, out, "I've remembered: 'I like Go'")
	assert.Contains(t, out, "[MemoryAgent, confidence 10.0]")
}

func TestAskRequiresPrompt(t *testing.T) {
	_, err := run(t, "ask", "--config", writeConfig(t))
	assert.Error(t, err)
}

func TestHealthcheckCommand(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	out, err := run(t, "healthcheck", "--url", healthy.URL+"/health")
	require.NoError(t, err)
	assert.Contains(t, out, "Health check passed")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	_, err = run(t, "healthcheck", "--url", failing.URL+"/health")
	assert.ErrorContains(t, err, "HTTP 503")
}
