// Package testkit holds scripted providers and generators for routing tests.
package testkit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/snow-ghost/codeassist/core"
)

// Provider is a scriptable core.Provider.
type Provider struct {
	ProviderName string
	Desc         string
	Terms        []string

	// ScoreFn overrides the native score; nil scores 0.
	ScoreFn func(prompt string) int

	// InvokeFn overrides Invoke; nil echoes the prompt.
	InvokeFn func(ctx context.Context, req core.Request) (core.Outcome, error)

	// Delay sleeps before invoking, honoring ctx.
	Delay time.Duration

	calls atomic.Int32
}

// NewProvider returns a provider with a fixed native score.
func NewProvider(name string, score int) *Provider {
	return &Provider{
		ProviderName: name,
		ScoreFn:      func(string) int { return score },
	}
}

func (p *Provider) Name() string        { return p.ProviderName }
func (p *Provider) Description() string { return p.Desc }

func (p *Provider) Score(prompt string) int {
	if p.ScoreFn == nil {
		return 0
	}
	return p.ScoreFn(prompt)
}

func (p *Provider) Invoke(ctx context.Context, req core.Request) (core.Outcome, error) {
	p.calls.Add(1)

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return core.Outcome{}, ctx.Err()
		}
	}

	if p.InvokeFn != nil {
		return p.InvokeFn(ctx, req)
	}
	return core.Outcome{Response: p.ProviderName + ": " + req.Prompt}, nil
}

// Calls returns how many times Invoke ran.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

// TermProvider is a Provider that also exposes trigger terms.
type TermProvider struct {
	*Provider
}

// NewTermProvider returns a provider with native score 0 and the given terms.
func NewTermProvider(name string, terms ...string) TermProvider {
	return TermProvider{Provider: &Provider{ProviderName: name, Terms: terms}}
}

func (p TermProvider) TriggerTerms() []string { return p.Terms }
