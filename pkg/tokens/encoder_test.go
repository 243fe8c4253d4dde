package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateEncoder_Count(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty string", text: "", expected: 0},
		{name: "short text", text: "Hello", expected: 2},
		{name: "exact multiple", text: "abcdefgh", expected: 2},
		{name: "medium text", text: "This is a test message", expected: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EstimateEncoder{}.Count(tt.text))
		})
	}
}

func TestForModelFallsBackToEstimate(t *testing.T) {
	assert.IsType(t, EstimateEncoder{}, ForModel("llama3.2"))
	assert.IsType(t, EstimateEncoder{}, ForModel("gemini-1.5-flash"))
}

func TestCountAll(t *testing.T) {
	assert.Equal(t, 4, CountAll(EstimateEncoder{}, "abcd", "", "abcdefghijk"))
}

func TestKeepNewest(t *testing.T) {
	items := []string{"aaaa", "bbbbbbbb", "cccc", "dddd"}

	tests := []struct {
		name   string
		items  []string
		budget int
		want   []string
	}{
		{"unbounded", items, 0, items},
		{"fits all", items, 10, items},
		{"drops oldest", items, 4, []string{"bbbbbbbb", "cccc", "dddd"}},
		{"stops at first overflow", items, 3, []string{"cccc", "dddd"}},
		{"only last", items, 1, []string{"dddd"}},
		{"newest too large", []string{"a", "bbbbbbbbbbbb"}, 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeepNewest(EstimateEncoder{}, tt.items, tt.budget))
		})
	}
}
