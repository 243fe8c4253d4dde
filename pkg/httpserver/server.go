// Package httpserver exposes the chat, generation and feedback API over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/chat"
	"github.com/snow-ghost/codeassist/pkg/config"
	"github.com/snow-ghost/codeassist/pkg/feedback"
	"github.com/snow-ghost/codeassist/pkg/logging"
	"github.com/snow-ghost/codeassist/pkg/registry"
	"github.com/snow-ghost/codeassist/pkg/store"
)

const maxBodyBytes = 1 << 20

// Availability reports whether the generation backend can take calls.
type Availability interface {
	Available() bool
}

// Deps are the services the server routes to.
type Deps struct {
	Chat      *chat.Service
	Feedback  *feedback.Service
	Registry  *registry.Registry
	Gatherer  prometheus.Gatherer // nil uses the default registry
	Generator Availability        // optional
}

// Server represents the HTTP server
type Server struct {
	cfg    config.ServerConfig
	logger *logging.Logger
	router *http.ServeMux
	deps   Deps
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Deps, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: http.NewServeMux(),
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	v1 := http.NewServeMux()
	v1.HandleFunc("POST /chats", s.handleNewChat)
	v1.HandleFunc("GET /chats", s.handleAllHistory)
	v1.HandleFunc("POST /chats/continue", s.handleContinue)
	v1.HandleFunc("GET /chats/{id}/history", s.handleHistory)
	v1.HandleFunc("POST /generate", s.handleGenerate)
	v1.HandleFunc("POST /feedback", s.handleFeedback)
	v1.HandleFunc("GET /feedback/{messageID}", s.handleFeedbackSummary)
	v1.HandleFunc("GET /agents", s.handleAgents)

	s.router.Handle("/v1/", http.StripPrefix("/v1", v1))
}

// Handler returns the root handler with request logging
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.LogRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.deps.Generator != nil && !s.deps.Generator.Available() {
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"service":   "codeassist",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Chat.NewChat(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, NewChatResponse{ChatID: sess.ID, Message: "New chat created."})
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	var req ContinueChatRequest
	if !s.decode(w, r, &req) {
		return
	}

	reply, err := s.deps.Chat.Continue(r.Context(), req.ChatID, req.Prompt)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRouted(reply.SessionID, reply.MessageID, reply.RouteResult))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Chat.Generate(r.Context(), req.Prompt)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRouted("", 0, res))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs, err := s.deps.Chat.History(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{ChatID: id, History: toHistory(msgs)})
}

func (s *Server) handleAllHistory(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Chat.AllHistory(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	chats := make([]ChatSummary, 0, len(all))
	for _, c := range all {
		chats = append(chats, ChatSummary{
			ChatID:    c.SessionID,
			CreatedAt: c.CreatedAt,
			Summary:   c.Summary,
			Messages:  toHistory(c.Messages),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"chats": chats})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}

	fb, err := s.deps.Feedback.Save(r.Context(), req.MessageID, req.Rating, req.Comment)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, fb)
}

func (s *Server) handleFeedbackSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("messageID"), 10, 64)
	if err != nil {
		s.writeError(w, "Invalid message id", "INVALID_MESSAGE_ID", http.StatusBadRequest)
		return
	}

	sum, err := s.deps.Feedback.Summary(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var agents []AgentInfo
	for _, e := range s.deps.Registry.All() {
		info := AgentInfo{Key: e.Key, Name: e.Provider.Name(), Description: e.Provider.Description()}
		if tt, ok := e.Provider.(core.TriggerTermer); ok {
			info.TriggerTerms = tt.TriggerTerms()
		}
		agents = append(agents, info)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.writeError(w, "Invalid JSON", "INVALID_JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// writeServiceError maps service errors onto status codes
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		s.writeError(w, "Chat session not found.", "SESSION_NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, store.ErrMessageNotFound):
		s.writeError(w, "Message not found.", "MESSAGE_NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, chat.ErrEmptyPrompt):
		s.writeError(w, err.Error(), "EMPTY_PROMPT", http.StatusBadRequest)
	case errors.Is(err, core.ErrMissingSession):
		s.writeError(w, err.Error(), "MISSING_CHAT_ID", http.StatusBadRequest)
	case errors.Is(err, store.ErrInvalidRating), errors.Is(err, feedback.ErrNotAssistantMessage):
		s.writeError(w, err.Error(), "INVALID_FEEDBACK", http.StatusBadRequest)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, "Internal error", "INTERNAL", http.StatusInternalServerError)
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message, code string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}
