package core

import (
	"time"
)

// Request is everything a provider gets to see for one prompt.
type Request struct {
	Prompt    string
	SessionID string            // empty when the caller has no chat session
	History   string            // rendered conversation context, may be empty
	Metadata  map[string]string // free-form caller hints
}

// HasSession reports whether the request is bound to a chat session.
func (r Request) HasSession() bool {
	return r.SessionID != ""
}

// Reasoning is the structured rationale attached to a response.
type Reasoning struct {
	Rationale   string `json:"rationale"`
	ToolInvoked string `json:"tool_invoked,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// ToolUsage records one tool call made while producing a response.
type ToolUsage struct {
	ToolName string `json:"tool_name"`
	Input    string `json:"input"`  // serialized
	Output   string `json:"output"` // serialized
}

// Outcome is the single result shape every provider returns.
type Outcome struct {
	Response   string      `json:"response"`
	Reasoning  *Reasoning  `json:"reasoning,omitempty"`
	ToolUsages []ToolUsage `json:"tool_usages,omitempty"`
}

// RouteResult is an Outcome plus routing provenance.
type RouteResult struct {
	Outcome
	Provider   string  `json:"provider"`
	Confidence float64 `json:"confidence"`
}

// MemoryItem is a long-term fact scoped to one chat session.
type MemoryItem struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Category  string    `json:"category"` // fact | preference | task
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Memory categories.
const (
	CategoryFact       = "fact"
	CategoryPreference = "preference"
	CategoryTask       = "task"
)
