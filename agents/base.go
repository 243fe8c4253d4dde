// Package agents holds the capability providers the router dispatches to.
package agents

import (
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/scoring"
)

// Option customizes an agent at construction time.
type Option func(*BaseAgent)

// WithLogger sets the agent logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *BaseAgent) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTriggerTerms replaces the default trigger terms. An empty list keeps the defaults.
func WithTriggerTerms(terms []string) Option {
	return func(b *BaseAgent) {
		if len(terms) > 0 {
			b.terms = append([]string(nil), terms...)
		}
	}
}

// BaseAgent provides the identity and keyword scoring shared by all agents
type BaseAgent struct {
	name        string
	description string
	terms       []string
	logger      *logging.Logger
}

func newBaseAgent(name, description string, terms []string, opts ...Option) BaseAgent {
	b := BaseAgent{
		name:        name,
		description: description,
		terms:       terms,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.WithFields(map[string]interface{}{"agent": name})
	return b
}

func (b *BaseAgent) Name() string        { return b.name }
func (b *BaseAgent) Description() string { return b.description }

// TriggerTerms returns a copy of the agent's trigger terms
func (b *BaseAgent) TriggerTerms() []string {
	return append([]string(nil), b.terms...)
}

// Score counts matching trigger terms.
func (b *BaseAgent) Score(prompt string) int {
	return scoring.KeywordMatchScore(prompt, b.terms)
}

// Info is the public description of an agent.
type Info struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	TriggerTerms []string `json:"trigger_terms,omitempty"`
}

// Describe returns the agent info
func (b *BaseAgent) Describe() Info {
	return Info{Name: b.name, Description: b.description, TriggerTerms: b.TriggerTerms()}
}
