// Package scoring ranks registered providers against a prompt.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/registry"
)

// Candidate is one provider that scored above zero for a prompt.
type Candidate struct {
	Key      string
	Provider core.Provider
	Score    int
}

// KeywordMatchScore counts the terms contained in prompt, case-insensitively.
// Each term counts at most once.
func KeywordMatchScore(prompt string, terms []string) int {
	if prompt == "" || len(terms) == 0 {
		return 0
	}

	lowered := strings.ToLower(prompt)
	score := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(term)) {
			score++
		}
	}
	return score
}

// Ranker reorders a keyword ranking, for example with a trained classifier.
// It may drop candidates or change scores; candidates left without a positive
// score are discarded.
type Ranker interface {
	Rerank(prompt string, ranked []Candidate) []Candidate
}

// RankerFunc adapts a function to Ranker.
type RankerFunc func(prompt string, ranked []Candidate) []Candidate

func (f RankerFunc) Rerank(prompt string, ranked []Candidate) []Candidate {
	return f(prompt, ranked)
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithRanker installs a second-stage ranker. Nil keeps keyword ranking only.
func WithRanker(r Ranker) Option {
	return func(s *Scorer) { s.ranker = r }
}

// Scorer ranks the rankable providers of a registry.
type Scorer struct {
	registry *registry.Registry
	logger   *logging.Logger
	ranker   Ranker
}

// NewScorer creates a scorer. A nil logger discards.
func NewScorer(reg *registry.Registry, logger *logging.Logger, opts ...Option) *Scorer {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scorer{registry: reg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rank returns providers with a positive score, best first. Equal scores
// keep registration order. A provider whose scoring panics is skipped.
func (s *Scorer) Rank(prompt string) []Candidate {
	var ranked []Candidate
	for _, entry := range s.registry.Providers() {
		score, err := s.score(entry.Provider, prompt)
		if err != nil {
			s.logger.Error("provider scoring failed", "provider", entry.Provider.Name(), "error", err)
			continue
		}
		if score <= 0 {
			continue
		}
		ranked = append(ranked, Candidate{Key: entry.Key, Provider: entry.Provider, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if s.ranker == nil || len(ranked) == 0 {
		return ranked
	}
	reranked, err := s.rerank(prompt, ranked)
	if err != nil {
		s.logger.Error("reranking failed, keeping keyword ranking", "error", err)
		return ranked
	}
	return reranked
}

// rerank hands the ranker its own copy and keeps only positive scores.
func (s *Scorer) rerank(prompt string, ranked []Candidate) (out []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic while reranking: %v", r)
		}
	}()

	in := make([]Candidate, len(ranked))
	copy(in, ranked)
	for _, c := range s.ranker.Rerank(prompt, in) {
		if c.Provider != nil && c.Score > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

// score applies the native score, then keyword matching when the native
// score is not positive and the provider exposes trigger terms.
func (s *Scorer) score(p core.Provider, prompt string) (score int, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, err = 0, fmt.Errorf("panic while scoring: %v", r)
		}
	}()

	score = p.Score(prompt)
	if score > 0 {
		return score, nil
	}
	if tt, ok := p.(core.TriggerTermer); ok {
		return KeywordMatchScore(prompt, tt.TriggerTerms()), nil
	}
	return 0, nil
}
