package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrQuotaExceeded, true},
		{"wrapped sentinel", fmt.Errorf("calling backend: %w", ErrQuotaExceeded), true},
		{"quota text", errors.New("Resource has been exhausted (e.g. check QUOTA)"), true},
		{"status code text", errors.New("status 429: too many requests"), true},
		{"sdk status text", errors.New("error, status code: 429, status: 429 Too Many Requests"), true},
		{"port with 429", errors.New("dial tcp 10.0.0.1:4290: connection refused"), false},
		{"id with 429", errors.New("message 81429 not found"), false},
		{"other", errors.New("connection refused"), false},
		{"timeout sentinel", ErrInvocationTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuotaError(tt.err))
		})
	}
}

func TestRequestHasSession(t *testing.T) {
	assert.False(t, Request{Prompt: "hi"}.HasSession())
	assert.True(t, Request{SessionID: "abc"}.HasSession())
}
