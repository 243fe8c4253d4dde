package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/snow-ghost/codeassist/core"
)

// ToolMemoryStore names the memory tool in reasoning and tool usages.
const ToolMemoryStore = "memory_store"

// RecallLimit is how many memories a recall lists.
const RecallLimit = 5

// MemoryScore is the fixed score of a prompt with a memory phrase.
const MemoryScore = 10

// User-facing memory texts.
const (
	MissingSessionMessage = "Chat session ID is required to manage memory."
	EmptyFactMessage      = "Could not extract any memory to store. Please be more specific."
	NothingStoredMessage  = "I don't have anything stored for this session yet."
	NoMemoryActionMessage = "I couldn't identify a valid memory action in your prompt."
)

var (
	MemoryTerms = []string{"remember", "forget", "recall", "remind", "store this", "what did i", "what was my"}

	storePhrases  = []string{"remember", "store this"}
	recallPhrases = []string{"recall", "what did", "remind", "what was"}

	factPattern = regexp.MustCompile(`(?is)(remember|store this)\s*(that\b\s*)?(.*)`)
)

// MemoryAgent stores and recalls facts scoped to a chat session.
type MemoryAgent struct {
	BaseAgent
	store core.MemoryStore
}

// NewMemoryAgent returns a memory agent backed by store.
func NewMemoryAgent(store core.MemoryStore, opts ...Option) *MemoryAgent {
	return &MemoryAgent{
		BaseAgent: newBaseAgent("MemoryAgent", "Stores or retrieves memories such as facts, preferences, or tasks per session.", MemoryTerms, opts...),
		store:     store,
	}
}

// Score is MemoryScore when any memory phrase appears, else 0.
func (a *MemoryAgent) Score(prompt string) int {
	if containsAny(strings.ToLower(prompt), a.terms) {
		return MemoryScore
	}
	return 0
}

func (a *MemoryAgent) Invoke(ctx context.Context, req core.Request) (core.Outcome, error) {
	if !req.HasSession() {
		return core.Outcome{
			Response:  MissingSessionMessage,
			Reasoning: &core.Reasoning{Rationale: "Memory is scoped to a chat session.", Observation: core.ErrMissingSession.Error()},
		}, nil
	}

	lowered := strings.ToLower(req.Prompt)
	switch {
	case containsAny(lowered, storePhrases):
		return a.remember(ctx, req)
	case containsAny(lowered, recallPhrases):
		return a.recall(ctx, req)
	default:
		return core.Outcome{
			Response:  NoMemoryActionMessage,
			Reasoning: &core.Reasoning{Rationale: "No store or recall phrase found in the prompt."},
		}, nil
	}
}

func (a *MemoryAgent) remember(ctx context.Context, req core.Request) (core.Outcome, error) {
	fact := ExtractFact(req.Prompt)
	if fact == "" {
		return core.Outcome{
			Response:  EmptyFactMessage,
			Reasoning: &core.Reasoning{Rationale: "The store request had nothing to store."},
		}, nil
	}

	item, err := a.store.Append(ctx, req.SessionID, core.CategoryFact, fact)
	if err != nil {
		return a.storeFailure(ctx, err)
	}
	a.logger.Debug("memory stored", "session_id", req.SessionID, "memory_id", item.ID)

	input, _ := json.Marshal(map[string]string{
		"action":   "append",
		"category": core.CategoryFact,
		"content":  fact,
	})
	return core.Outcome{
		Response: fmt.Sprintf("Got it. I've remembered: '%s'", fact),
		Reasoning: &core.Reasoning{
			Rationale:   "The prompt asks to remember a fact.",
			ToolInvoked: ToolMemoryStore,
			Observation: fmt.Sprintf("stored memory %d", item.ID),
		},
		ToolUsages: []core.ToolUsage{
			{ToolName: ToolMemoryStore, Input: string(input), Output: fact},
		},
	}, nil
}

func (a *MemoryAgent) recall(ctx context.Context, req core.Request) (core.Outcome, error) {
	items, err := a.store.ListRecent(ctx, req.SessionID, RecallLimit)
	if err != nil {
		return a.storeFailure(ctx, err)
	}
	if len(items) == 0 {
		return core.Outcome{
			Response:  NothingStoredMessage,
			Reasoning: &core.Reasoning{Rationale: "The prompt asks to recall memories.", ToolInvoked: ToolMemoryStore, Observation: "no memories"},
		}, nil
	}

	var b strings.Builder
	b.WriteString("Here's what I remember:")
	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. %s (last updated: %s)", i+1, item.Content, item.UpdatedAt.Format("2006-01-02 15:04"))
	}

	input, _ := json.Marshal(map[string]any{"action": "list_recent", "limit": RecallLimit})
	return core.Outcome{
		Response: b.String(),
		Reasoning: &core.Reasoning{
			Rationale:   "The prompt asks to recall memories.",
			ToolInvoked: ToolMemoryStore,
			Observation: fmt.Sprintf("found %d memories", len(items)),
		},
		ToolUsages: []core.ToolUsage{
			{ToolName: ToolMemoryStore, Input: string(input), Output: b.String()},
		},
	}, nil
}

func (a *MemoryAgent) storeFailure(ctx context.Context, err error) (core.Outcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.Outcome{}, ctxErr
	}
	a.logger.Error("memory store failed", "error", err)
	return core.Outcome{
		Response:  fmt.Sprintf("Error accessing memory: %v", err),
		Reasoning: &core.Reasoning{Rationale: "The memory store could not be reached.", ToolInvoked: ToolMemoryStore, Observation: err.Error()},
	}, nil
}

// ExtractFact returns the text after "remember" or "store this", without a leading "that".
func ExtractFact(prompt string) string {
	m := factPattern.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[3])
}

func containsAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
