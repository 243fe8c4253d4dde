// Package chat runs conversations: it persists turns around each routing call.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/convctx"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/store"
)

// ErrEmptyPrompt is returned for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// Router answers one prompt. *routing.Router satisfies it.
type Router interface {
	Route(ctx context.Context, req core.Request) core.RouteResult
}

// Option customizes a Service.
type Option func(*Service)

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContextOptions sets how much history providers see.
func WithContextOptions(o convctx.Options) Option {
	return func(s *Service) { s.ctxOpts = o }
}

// Service owns the conversation flow around the router.
type Service struct {
	store   store.Store
	router  Router
	ctxOpts convctx.Options
	logger  *logging.Logger
	newID   func() string
}

// NewService creates a chat service
func NewService(st store.Store, r Router, opts ...Option) *Service {
	s := &Service{
		store:   st,
		router:  r,
		ctxOpts: convctx.Options{Messages: 5, Memories: 5},
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewChat starts a session with a fresh id.
func (s *Service) NewChat(ctx context.Context) (store.ChatSession, error) {
	sess, err := s.store.CreateSession(ctx, s.newID())
	if err != nil {
		return store.ChatSession{}, fmt.Errorf("failed to create chat: %w", err)
	}
	s.logger.Info("chat created", "session_id", sess.ID)
	return sess, nil
}

// Reply is a routed answer persisted as an assistant message.
type Reply struct {
	SessionID string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	core.RouteResult
}

// Continue stores the user turn, routes it with the session context and
// stores the answer.
func (s *Service) Continue(ctx context.Context, sessionID, prompt string) (Reply, error) {
	if strings.TrimSpace(prompt) == "" {
		return Reply{}, ErrEmptyPrompt
	}
	if sessionID == "" {
		return Reply{}, core.ErrMissingSession
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return Reply{}, err
	}

	history, err := convctx.Build(ctx, s.store, sessionID, s.ctxOpts)
	if err != nil {
		// routing still works without history
		s.logger.Warn("failed to build conversation context", "session_id", sessionID, "error", err)
		history = ""
	}

	if _, err := s.store.AppendMessage(ctx, store.Message{
		SessionID: sessionID,
		Role:      store.RoleUser,
		Content:   prompt,
	}); err != nil {
		return Reply{}, fmt.Errorf("failed to save user message: %w", err)
	}

	start := time.Now()
	res := s.router.Route(ctx, core.Request{Prompt: prompt, SessionID: sessionID, History: history})

	msg, err := s.store.AppendMessage(ctx, assistantMessage(sessionID, res))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to save assistant message: %w", err)
	}

	s.logger.WithSession(sessionID).Info("chat turn completed",
		"provider", res.Provider,
		"confidence", res.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Reply{SessionID: sessionID, MessageID: msg.ID, RouteResult: res}, nil
}

// Generate routes a prompt without a session. Nothing is persisted.
func (s *Service) Generate(ctx context.Context, prompt string) (core.RouteResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return core.RouteResult{}, ErrEmptyPrompt
	}
	return s.router.Route(ctx, core.Request{Prompt: prompt}), nil
}

// History returns a session's messages oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]store.Message, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID)
}

// Summary is one session in the all-chats listing.
type Summary struct {
	SessionID string          `json:"chat_id"`
	CreatedAt time.Time       `json:"created_at"`
	Summary   string          `json:"summary"`
	Messages  []store.Message `json:"messages"`
}

// AllHistory lists every session newest first, with a keyword summary of its user turns.
func (s *Service) AllHistory(ctx context.Context) ([]Summary, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		msgs, err := s.store.ListMessages(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		var userTurns []string
		for _, m := range msgs {
			if m.Role == store.RoleUser {
				userTurns = append(userTurns, m.Content)
			}
		}
		out = append(out, Summary{
			SessionID: sess.ID,
			CreatedAt: sess.CreatedAt,
			Summary:   Summarize(userTurns),
			Messages:  msgs,
		})
	}
	return out, nil
}

func assistantMessage(sessionID string, res core.RouteResult) store.Message {
	msg := store.Message{
		SessionID:  sessionID,
		Role:       store.RoleAssistant,
		Content:    res.Response,
		Provider:   res.Provider,
		Confidence: res.Confidence,
	}
	if r := res.Reasoning; r != nil {
		msg.Thought = &store.Thought{
			Reasoning:   r.Rationale,
			ToolInvoked: r.ToolInvoked,
			Observation: r.Observation,
		}
	}
	for _, u := range res.ToolUsages {
		msg.ToolUsages = append(msg.ToolUsages, store.ToolUsageRecord{
			ToolName: u.ToolName,
			Input:    u.Input,
			Output:   u.Output,
		})
	}
	return msg
}
