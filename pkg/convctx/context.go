// Package convctx renders the conversation context handed to providers.
package convctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/store"
	"github.com/snow-ghost/codeassist/pkg/tokens"
)

// Source is the part of the store the builder reads.
type Source interface {
	ListRecent(ctx context.Context, sessionID string, limit int) ([]core.MemoryItem, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error)
}

// Options bounds the rendered context.
type Options struct {
	Messages    int // last N messages
	Memories    int // newest N memories
	TokenBudget int // zero disables trimming
	Encoder     tokens.Encoder
}

// Build renders memories and recent messages for sessionID. Over budget,
// the oldest messages go first, then the oldest memories.
func Build(ctx context.Context, src Source, sessionID string, opts Options) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	if opts.Encoder == nil {
		opts.Encoder = tokens.EstimateEncoder{}
	}

	var memLines []string
	if opts.Memories > 0 {
		items, err := src.ListRecent(ctx, sessionID, opts.Memories)
		if err != nil {
			return "", fmt.Errorf("failed to load memories: %w", err)
		}
		for _, item := range items {
			memLines = append(memLines, fmt.Sprintf("- (%s) %s", item.Category, item.Content))
		}
	}

	var msgLines []string
	if opts.Messages > 0 {
		msgs, err := src.RecentMessages(ctx, sessionID, opts.Messages)
		if err != nil {
			return "", fmt.Errorf("failed to load messages: %w", err)
		}
		for _, m := range msgs {
			speaker := "User"
			if m.Role == store.RoleAssistant {
				speaker = "Assistant"
			}
			msgLines = append(msgLines, fmt.Sprintf("%s: %s", speaker, m.Content))
		}
	}

	if opts.TokenBudget > 0 {
		memLines, msgLines = fit(opts.Encoder, memLines, msgLines, opts.TokenBudget)
	}
	return render(memLines, msgLines), nil
}

func fit(enc tokens.Encoder, memLines, msgLines []string, budget int) ([]string, []string) {
	memCost := tokens.CountAll(enc, memLines...)
	if memCost >= budget {
		// memories are newest first, so the kept suffix of the reversed list is the newest
		kept := tokens.KeepNewest(enc, reverse(memLines), budget)
		return reverse(kept), nil
	}
	return memLines, tokens.KeepNewest(enc, msgLines, budget-memCost)
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

func render(memLines, msgLines []string) string {
	var parts []string
	if len(memLines) > 0 {
		parts = append(parts, "Memory:\n"+strings.Join(memLines, "\n"))
	}
	if len(msgLines) > 0 {
		parts = append(parts, "Recent Conversation:\n"+strings.Join(msgLines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
