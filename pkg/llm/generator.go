// Package llm talks to text-generation backends.
package llm

import (
	"context"
)

// Generator is a core.TextGenerator that can describe itself for metrics and cache keys.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Backend() string
	Model() string
}
