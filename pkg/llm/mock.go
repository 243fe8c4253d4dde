package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator answers deterministically without any network.
// It is the default backend for local runs and demos.
type MockGenerator struct {
	model string
}

// NewMockGenerator creates a new mock generator
func NewMockGenerator(model string) *MockGenerator {
	if model == "" {
		model = "mock"
	}
	return &MockGenerator{model: model}
}

func (g *MockGenerator) Backend() string { return "mock" }
func (g *MockGenerator) Model() string   { return g.model }

// Complete echoes the user request found in prompt.
func (g *MockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", g.model, lastRequest(prompt)), nil
}

// lastRequest pulls the text between the last request marker and the answer cue.
func lastRequest(prompt string) string {
	markers := []string{"User Request: ", "User Code with Issue:\n", "Code to Explain:\n"}
	start := -1
	for _, m := range markers {
		if i := strings.LastIndex(prompt, m); i >= 0 && i+len(m) > start {
			start = i + len(m)
		}
	}
	if start < 0 {
		return strings.TrimSpace(prompt)
	}

	rest := prompt[start:]
	if end := strings.LastIndex(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
