package httpserver

import (
	"time"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/store"
)

// PromptRequest is the body of /v1/generate
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// ContinueChatRequest is the body of /v1/chats/continue
type ContinueChatRequest struct {
	ChatID string `json:"chat_id"`
	Prompt string `json:"prompt"`
}

// FeedbackRequest is the body of /v1/feedback
type FeedbackRequest struct {
	MessageID int64  `json:"message_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// NewChatResponse is returned when a chat is created
type NewChatResponse struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

// RoutedResponse carries an answer with its routing provenance
type RoutedResponse struct {
	ChatID     string           `json:"chat_id,omitempty"`
	MessageID  int64            `json:"message_id,omitempty"`
	Response   string           `json:"response"`
	Provider   string           `json:"provider"`
	Confidence float64          `json:"confidence"`
	Reasoning  *core.Reasoning  `json:"reasoning,omitempty"`
	ToolUsages []core.ToolUsage `json:"tool_usages,omitempty"`
}

// HistoryMessage is one turn in a history listing
type HistoryMessage struct {
	ID         int64          `json:"id"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Provider   string         `json:"provider,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Thought    *store.Thought `json:"thought,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// HistoryResponse is the history of one chat
type HistoryResponse struct {
	ChatID  string           `json:"chat_id"`
	History []HistoryMessage `json:"history"`
}

// ChatSummary is one chat in the all-chats listing
type ChatSummary struct {
	ChatID    string           `json:"chat_id"`
	CreatedAt time.Time        `json:"created_at"`
	Summary   string           `json:"summary"`
	Messages  []HistoryMessage `json:"messages"`
}

// AgentInfo describes one registered provider
type AgentInfo struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	TriggerTerms []string `json:"trigger_terms,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func toHistory(msgs []store.Message) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{
			ID:         m.ID,
			Role:       m.Role,
			Content:    m.Content,
			Provider:   m.Provider,
			Confidence: m.Confidence,
			Thought:    m.Thought,
			Timestamp:  m.CreatedAt,
		})
	}
	return out
}

func toRouted(chatID string, messageID int64, res core.RouteResult) RoutedResponse {
	return RoutedResponse{
		ChatID:     chatID,
		MessageID:  messageID,
		Response:   res.Response,
		Provider:   res.Provider,
		Confidence: res.Confidence,
		Reasoning:  res.Reasoning,
		ToolUsages: res.ToolUsages,
	}
}
