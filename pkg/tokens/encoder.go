package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoder counts tokens the way a generation backend would
type Encoder interface {
	Count(text string) int
}

// TiktokenEncoder implements Encoder using tiktoken-go
type TiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEncoder loads the named BPE encoding (for example cl100k_base)
func NewTiktokenEncoder(encodingName string) (*TiktokenEncoder, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TiktokenEncoder{encoding: encoding}, nil
}

// Count returns the number of tokens in text
func (e *TiktokenEncoder) Count(text string) int {
	return len(e.encoding.Encode(text, nil, nil))
}

// EstimateEncoder approximates four characters per token
type EstimateEncoder struct{}

// Count returns ceil(len/4), zero for empty text
func (EstimateEncoder) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

var (
	openAIPrefixes = []string{"gpt-", "o1", "o3", "text-embedding-"}

	cl100kOnce sync.Once
	cl100k     Encoder
)

// ForModel returns a tiktoken encoder for OpenAI-family models and the
// estimator for everything else, or when the BPE ranks cannot be loaded.
func ForModel(model string) Encoder {
	for _, prefix := range openAIPrefixes {
		if strings.HasPrefix(model, prefix) {
			cl100kOnce.Do(func() {
				if enc, err := NewTiktokenEncoder("cl100k_base"); err == nil {
					cl100k = enc
				}
			})
			if cl100k != nil {
				return cl100k
			}
			break
		}
	}
	return EstimateEncoder{}
}

// CountAll sums token counts over texts
func CountAll(enc Encoder, texts ...string) int {
	total := 0
	for _, t := range texts {
		total += enc.Count(t)
	}
	return total
}

// KeepNewest returns the longest suffix of items whose total count fits budget.
// A non-positive budget keeps everything.
func KeepNewest(enc Encoder, items []string, budget int) []string {
	if budget <= 0 {
		return items
	}

	used := 0
	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		n := enc.Count(items[i])
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return items[start:]
}
