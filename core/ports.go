package core

import "context"

// Provider is one routable capability (code generation, bug fixing, ...).
type Provider interface {
	Name() string
	Description() string
	// Score must be pure: no side effects, same input same output.
	Score(prompt string) int
	// Invoke may have side effects. The router never retries it.
	Invoke(ctx context.Context, req Request) (Outcome, error)
}

// TriggerTermer is implemented by providers that expose keyword triggers.
type TriggerTermer interface {
	TriggerTerms() []string
}

// TextGenerator is the opaque text-completion service.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MemoryStore persists session-scoped memory items.
type MemoryStore interface {
	Append(ctx context.Context, sessionID, category, content string) (MemoryItem, error)
	// ListRecent returns at most limit items, newest first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]MemoryItem, error)
}
