package core

import (
	"errors"
	"strings"
)

var (
	// ErrQuotaExceeded marks upstream rate-limit / quota failures.
	ErrQuotaExceeded = errors.New("upstream quota exceeded")

	// ErrMissingSession is returned when a session-scoped operation has no session id.
	ErrMissingSession = errors.New("chat session id is required")

	// ErrEmptyResponse is returned when a provider or generator produced no text.
	ErrEmptyResponse = errors.New("empty response")

	// ErrInvocationTimeout is returned when a call exceeded its time budget.
	ErrInvocationTimeout = errors.New("invocation timed out")
)

// quotaMarkers are the phrases upstream SDKs put in rate-limit error text.
// A bare "429" is not one: ports and ids contain it too.
var quotaMarkers = []string{
	"quota",
	"too many requests",
	"status 429",
	"status code: 429",
	"http 429",
}

// IsQuotaError reports whether err is a rate-limit flavoured failure.
// Besides the sentinel, it recognises the textual markers upstream SDKs use.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
