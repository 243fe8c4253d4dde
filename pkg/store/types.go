// Package store persists chat sessions, messages, memories and feedback.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/snow-ghost/codeassist/core"
)

var (
	// ErrSessionNotFound is returned for an unknown chat session id.
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrMessageNotFound is returned for an unknown message id.
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidRating is returned for feedback ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is one conversation.
type ChatSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Thought is the reasoning attached to an assistant message.
type Thought struct {
	Reasoning   string `json:"reasoning"`
	ToolInvoked string `json:"tool_invoked,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// ToolUsageRecord is one persisted tool call.
type ToolUsageRecord struct {
	ToolName string `json:"tool_name"`
	Input    string `json:"input"`
	Output   string `json:"output"`
}

// Message is a user or assistant turn. Assistant messages carry routing
// provenance plus the thought and tool usages that produced them.
type Message struct {
	ID         int64             `json:"id"`
	SessionID  string            `json:"session_id"`
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Provider   string            `json:"provider,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	Thought    *Thought          `json:"thought,omitempty"`
	ToolUsages []ToolUsageRecord `json:"tool_usages,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Feedback is a user rating of one assistant message.
type Feedback struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	AgentName string    `json:"agent_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRating reports whether r is on the 1..5 scale.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}

// Store is the persistence port used by the chat and feedback services.
type Store interface {
	core.MemoryStore

	CreateSession(ctx context.Context, id string) (ChatSession, error)
	GetSession(ctx context.Context, id string) (ChatSession, error)
	// ListSessions returns sessions newest first.
	ListSessions(ctx context.Context) ([]ChatSession, error)

	// AppendMessage stores msg with its thought and tool usages.
	AppendMessage(ctx context.Context, msg Message) (Message, error)
	GetMessage(ctx context.Context, id int64) (Message, error)
	// ListMessages returns a session's messages oldest first.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
	// RecentMessages returns the last limit messages, oldest first.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// ListMemories returns every memory of a session, newest first.
	ListMemories(ctx context.Context, sessionID string) ([]core.MemoryItem, error)

	SaveFeedback(ctx context.Context, fb Feedback) (Feedback, error)
	ListFeedback(ctx context.Context, messageID int64) ([]Feedback, error)

	Close() error
}
