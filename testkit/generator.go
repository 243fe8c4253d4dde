package testkit

import (
	"context"
	"sync"
	"time"
)

// Generator is a scriptable core.TextGenerator that records its prompts.
type Generator struct {
	Response string
	Err      error
	Delay    time.Duration

	mu      sync.Mutex
	prompts []string
}

// NewGenerator returns a generator that always answers response.
func NewGenerator(response string) *Generator {
	return &Generator{Response: response}
}

// FailingGenerator returns a generator that always fails with err.
func FailingGenerator(err error) *Generator {
	return &Generator{Err: err}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

// Prompts returns every prompt seen so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "".
func (g *Generator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}
