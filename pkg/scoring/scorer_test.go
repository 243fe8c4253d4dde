package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/registry"
	"github.com/snow-ghost/codeassist/testkit"
)

func TestKeywordMatchScore(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		terms  []string
		want   int
	}{
		{"no terms", "fix it", nil, 0},
		{"empty prompt", "", []string{"fix"}, 0},
		{"single match", "please fix this", []string{"fix", "bug"}, 1},
		{"case insensitive", "FIX the BUG", []string{"fix", "bug"}, 2},
		{"term counted once", "bug bug bug", []string{"bug"}, 1},
		{"substring match", "debugging", []string{"bug", "debug"}, 2},
		{"multi word term", "What does this do?", []string{"what does"}, 1},
		{"mixed case term", "explain", []string{"EXPLAIN"}, 1},
		{"empty term ignored", "anything", []string{""}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeywordMatchScore(tt.prompt, tt.terms))
		})
	}
}

func TestKeywordMatchScoreBounds(t *testing.T) {
	terms := []string{"fix", "bug", "error", "issue"}
	prompts := []string{"", "fix", "fix bug error issue fix bug", "nothing relevant", "ISSUE"}
	for _, p := range prompts {
		got := KeywordMatchScore(p, terms)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, len(terms))
	}
}

func newRegistry(t *testing.T, entries ...registry.Entry) *registry.Registry {
	t.Helper()
	reg, err := registry.New(entries...)
	require.NoError(t, err)
	return reg
}

func TestRankOrdersByScoreThenRegistration(t *testing.T) {
	reg := newRegistry(t,
		registry.Entry{Key: "a", Provider: testkit.NewProvider("A", 1)},
		registry.Entry{Key: "b", Provider: testkit.NewProvider("B", 3)},
		registry.Entry{Key: "c", Provider: testkit.NewProvider("C", 1)},
		registry.Entry{Key: "d", Provider: testkit.NewProvider("D", 0)},
		registry.Entry{Key: "e", Provider: testkit.NewProvider("E", 3)},
	)

	ranked := NewScorer(reg, nil).Rank("anything")

	var keys []string
	for i, c := range ranked {
		keys = append(keys, c.Key)
		assert.Positive(t, c.Score)
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Score, c.Score)
		}
	}
	assert.Equal(t, []string{"b", "e", "a", "c"}, keys)
}

func TestRankKeywordFallback(t *testing.T) {
	native := testkit.NewProvider("Native", 0)
	native.Terms = []string{"fix"} // no TriggerTerms method, so never used

	reg := newRegistry(t,
		registry.Entry{Key: "native", Provider: native},
		registry.Entry{Key: "bug", Provider: testkit.NewTermProvider("BugFixer", "fix", "bug", "broken")},
		registry.Entry{Key: "gen", Provider: testkit.NewTermProvider("CodeGenerator", "write", "code")},
	)

	ranked := NewScorer(reg, nil).Rank("Fix this broken code")
	require.Len(t, ranked, 2)
	assert.Equal(t, "BugFixer", ranked[0].Provider.Name())
	assert.Equal(t, 2, ranked[0].Score)
	assert.Equal(t, "CodeGenerator", ranked[1].Provider.Name())
	assert.Equal(t, 1, ranked[1].Score)
}

func TestRankNativeScoreWinsOverTerms(t *testing.T) {
	p := testkit.NewTermProvider("Memory", "remember")
	p.ScoreFn = func(string) int { return 10 }

	reg := newRegistry(t, registry.Entry{Key: "memory", Provider: p})
	ranked := NewScorer(reg, nil).Rank("remember my name")
	require.Len(t, ranked, 1)
	assert.Equal(t, 10, ranked[0].Score)
}

func TestRankSkipsPanickingProvider(t *testing.T) {
	bad := testkit.NewProvider("Bad", 0)
	bad.ScoreFn = func(string) int { panic("kaboom") }

	core, logs := observer.New(zapcore.DebugLevel)
	reg := newRegistry(t,
		registry.Entry{Key: "bad", Provider: bad},
		registry.Entry{Key: "good", Provider: testkit.NewProvider("Good", 2)},
	)

	ranked := NewScorer(reg, logging.FromZap(zap.New(core))).Rank("anything")
	require.Len(t, ranked, 1)
	assert.Equal(t, "Good", ranked[0].Provider.Name())

	entries := logs.FilterMessage("provider scoring failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Bad", entries[0].ContextMap()["provider"])
}

func TestRankExcludesRouter(t *testing.T) {
	reg := newRegistry(t, registry.Entry{Key: "a", Provider: testkit.NewProvider("A", 0)})
	router := testkit.NewProvider("RouterAgent", 99)
	require.NoError(t, reg.WithRouter(router))

	assert.Empty(t, NewScorer(reg, nil).Rank("route this please"))
}

func TestRankIsDeterministic(t *testing.T) {
	reg := newRegistry(t,
		registry.Entry{Key: "a", Provider: testkit.NewTermProvider("A", "code")},
		registry.Entry{Key: "b", Provider: testkit.NewTermProvider("B", "code")},
	)
	s := NewScorer(reg, nil)

	first := s.Rank("write code")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Rank("write code"))
	}
	assert.Equal(t, "A", first[0].Provider.Name())
}

func TestRankWithRanker(t *testing.T) {
	reg := newRegistry(t,
		registry.Entry{Key: "gen", Provider: testkit.NewTermProvider("CodeGenerator", "write", "code")},
		registry.Entry{Key: "bug", Provider: testkit.NewTermProvider("BugFixer", "fix")},
		registry.Entry{Key: "explain", Provider: testkit.NewTermProvider("CodeExplainer", "explain")},
	)
	prompt := "write code to fix and explain"

	preferBug := RankerFunc(func(_ string, ranked []Candidate) []Candidate {
		var out []Candidate
		for _, c := range ranked {
			switch c.Key {
			case "bug":
				c.Score = 5
				out = append([]Candidate{c}, out...)
			case "explain":
				c.Score = 0
				out = append(out, c)
			default:
				out = append(out, c)
			}
		}
		return out
	})

	tests := []struct {
		name   string
		ranker Ranker
		want   []string
	}{
		{"keyword only", nil, []string{"gen", "bug", "explain"}},
		{"reordered and filtered", preferBug, []string{"bug", "gen"}},
		{"panicking ranker keeps keyword order", RankerFunc(func(string, []Candidate) []Candidate { panic("model missing") }), []string{"gen", "bug", "explain"}},
		{"empty result", RankerFunc(func(string, []Candidate) []Candidate { return nil }), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keys []string
			for _, c := range NewScorer(reg, nil, WithRanker(tt.ranker)).Rank(prompt) {
				keys = append(keys, c.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}
