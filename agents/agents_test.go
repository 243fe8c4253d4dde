package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/limiter"
	"github.com/snow-ghost/codeassist/pkg/store"
	"github.com/snow-ghost/codeassist/testkit"
)

func TestGenerationAgentScores(t *testing.T) {
	gen := testkit.NewGenerator("x")
	codegen := NewCodeGenerator(gen)
	bugfix := NewBugFixer(gen)
	explain := NewCodeExplainer(gen)

	tests := []struct {
		prompt                string
		codegen, bugfix, expl int
	}{
		{"Fix this broken code: def f(: return 1", 1, 2, 0},
		{"Write a Python function to sort a list", 2, 0, 0},
		{"Explain what does this regex mean", 0, 0, 2},
		{"hello there", 0, 0, 0},
		{"FIX the BUG", 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.codegen, codegen.Score(tt.prompt))
			assert.Equal(t, tt.bugfix, bugfix.Score(tt.prompt))
			assert.Equal(t, tt.expl, explain.Score(tt.prompt))
		})
	}
}

func TestGenerationAgentInvoke(t *testing.T) {
	gen := testkit.NewGenerator("  def f(): return 1  \n")
	a := NewBugFixer(gen)

	out, err := a.Invoke(context.Background(), core.Request{Prompt: "fix def f(: return 1", History: "User: earlier"})
	require.NoError(t, err)
	assert.Equal(t, "def f(): return 1", out.Response)
	require.NotNil(t, out.Reasoning)
	assert.Equal(t, ToolTextGeneration, out.Reasoning.ToolInvoked)
	require.Len(t, out.ToolUsages, 1)
	assert.Equal(t, "fix def f(: return 1", out.ToolUsages[0].Input)

	prompt := gen.LastPrompt()
	assert.Contains(t, prompt, "User Code with Issue:\nfix def f(: return 1")
	assert.Contains(t, prompt, "User: earlier")
}

func TestGenerationAgentFailures(t *testing.T) {
	tests := []struct {
		name  string
		agent func(core.TextGenerator, ...Option) *GenerationAgent
		err   error
		want  string
	}{
		{"quota sentinel", NewCodeGenerator, core.ErrQuotaExceeded, core.QuotaExceededMessage},
		{"http 429", NewBugFixer, limiter.NewHTTPError(429, "too many requests", ""), core.QuotaExceededMessage},
		{"quota text", NewCodeExplainer, errors.New("Quota exhausted for project"), core.QuotaExceededMessage},
		{"generic codegen", NewCodeGenerator, errors.New("connection reset"), "Error generating code: connection reset"},
		{"generic bugfix", NewBugFixer, errors.New("connection reset"), "Error debugging code: connection reset"},
		{"generic explain", NewCodeExplainer, errors.New("connection reset"), "Error while explaining code: connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.agent(testkit.FailingGenerator(tt.err)).Invoke(context.Background(), core.Request{Prompt: "p"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Response)
		})
	}
}

func TestGenerationAgentCancelledContext(t *testing.T) {
	gen := testkit.NewGenerator("late")
	gen.Delay = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCodeGenerator(gen).Invoke(ctx, core.Request{Prompt: "write code"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTriggerTermOverride(t *testing.T) {
	a := NewCodeGenerator(testkit.NewGenerator("x"), WithTriggerTerms([]string{"scaffold"}))
	assert.Equal(t, []string{"scaffold"}, a.TriggerTerms())
	assert.Equal(t, 1, a.Score("scaffold a service"))
	assert.Zero(t, a.Score("write code"))

	kept := NewCodeGenerator(testkit.NewGenerator("x"), WithTriggerTerms(nil))
	assert.Equal(t, CodeGeneratorTerms, kept.TriggerTerms())
}

func TestMemoryAgentScore(t *testing.T) {
	a := NewMemoryAgent(store.NewMemoryStore())

	assert.Equal(t, MemoryScore, a.Score("Remember that I prefer Go"))
	assert.Equal(t, MemoryScore, a.Score("What did I tell you?"))
	assert.Equal(t, MemoryScore, a.Score("please forget it"))
	assert.Zero(t, a.Score("write a function"))
}

func TestExtractFact(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"Remember that my favorite language is Go", "my favorite language is Go"},
		{"remember my name is Ada", "my name is Ada"},
		{"Please store this: deploy on fridays", ": deploy on fridays"},
		{"remember", ""},
		{"Remember that   ", ""},
		{"nothing to see", ""},
		{"remember thatcher was PM", "thatcher was PM"},
		{"remember that the deploy steps are:\nbuild\nship", "the deploy steps are:\nbuild\nship"},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFact(tt.prompt))
		})
	}
}

func TestMemoryStoreThenRecall(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAgent(store.NewMemoryStore())

	out, err := a.Invoke(ctx, core.Request{Prompt: "Remember that my favorite language is Go", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Got it. I've remembered: 'my favorite language is Go'", out.Response)
	require.Len(t, out.ToolUsages, 1)
	assert.Equal(t, ToolMemoryStore, out.ToolUsages[0].ToolName)

	out, err = a.Invoke(ctx, core.Request{Prompt: "What did I say my favorite language was?", SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Response, "Here's what I remember:\n1. my favorite language is Go (last updated: "))

	other, err := a.Invoke(ctx, core.Request{Prompt: "recall everything", SessionID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, NothingStoredMessage, other.Response)
}

func TestMemoryRecallLimit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, fact := range []string{"one", "two", "three", "four", "five", "six"} {
		_, err := s.Append(ctx, "s1", core.CategoryFact, fact)
		require.NoError(t, err)
	}

	out, err := NewMemoryAgent(s).Invoke(ctx, core.Request{Prompt: "remind me", SessionID: "s1"})
	require.NoError(t, err)

	lines := strings.Split(out.Response, "\n")
	require.Len(t, lines, RecallLimit+1)
	assert.True(t, strings.HasPrefix(lines[1], "1. six "))
	assert.True(t, strings.HasPrefix(lines[5], "5. two "))
}

func TestMemoryEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a := NewMemoryAgent(s)

	out, err := a.Invoke(ctx, core.Request{Prompt: "Remember that"})
	require.NoError(t, err)
	assert.Equal(t, MissingSessionMessage, out.Response)

	out, err = a.Invoke(ctx, core.Request{Prompt: "recall"})
	require.NoError(t, err)
	assert.Equal(t, MissingSessionMessage, out.Response)
	assert.NotEqual(t, NothingStoredMessage, out.Response)

	out, err = a.Invoke(ctx, core.Request{Prompt: "Remember that", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, EmptyFactMessage, out.Response)
	items, err := s.ListMemories(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, items)

	out, err = a.Invoke(ctx, core.Request{Prompt: "forget everything", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, NoMemoryActionMessage, out.Response)
}

type brokenMemory struct{}

func (brokenMemory) Append(context.Context, string, string, string) (core.MemoryItem, error) {
	return core.MemoryItem{}, errors.New("disk full")
}

func (brokenMemory) ListRecent(context.Context, string, int) ([]core.MemoryItem, error) {
	return nil, errors.New("disk full")
}

func TestMemoryStoreErrors(t *testing.T) {
	a := NewMemoryAgent(brokenMemory{})

	out, err := a.Invoke(context.Background(), core.Request{Prompt: "remember x", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Error accessing memory: disk full", out.Response)

	out, err = a.Invoke(context.Background(), core.Request{Prompt: "recall", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Error accessing memory: disk full", out.Response)
}

func TestDescribe(t *testing.T) {
	info := NewMemoryAgent(store.NewMemoryStore()).Describe()
	assert.Equal(t, "MemoryAgent", info.Name)
	assert.Equal(t, MemoryTerms, info.TriggerTerms)
}
