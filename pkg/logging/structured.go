package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps both slog and zap loggers
type Logger struct {
	slog *slog.Logger
	zap  *zap.Logger
}

// Config holds logging configuration
type Config struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"` // "json" or "console"
	Output    string `mapstructure:"output"` // "stdout" or "stderr"
	AddCaller bool   `mapstructure:"add_caller"`
	AddStack  bool   `mapstructure:"add_stack"`
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Output == "" {
		config.Output = "stdout"
	}

	out := os.Stdout
	if config.Output == "stderr" {
		out = os.Stderr
	}
	slogLogger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseSlogLevel(config.Level),
	}))

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseZapLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack
	if config.Format == "console" {
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		slog: slogLogger,
		zap:  zapLogger,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests and as a default.
func NewNop() *Logger {
	return &Logger{
		slog: slog.New(slog.DiscardHandler),
		zap:  zap.NewNop(),
	}
}

// FromZap wraps an existing zap logger; the slog side writes JSON to stdout.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{
		slog: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		zap:  z,
	}
}

func parseSlogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseZapLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(ctx context.Context, requestID string) *Logger {
	return &Logger{
		slog: l.slog.With("request_id", requestID),
		zap:  l.zap.With(zap.String("request_id", requestID)),
	}
}

// WithSession adds the chat session id to logger context
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		slog: l.slog.With("session_id", sessionID),
		zap:  l.zap.With(zap.String("session_id", sessionID)),
	}
}

// WithFields adds fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	slogAttrs := make([]any, 0, len(fields)*2)
	zapFields := make([]zap.Field, 0, len(fields))

	for key, value := range fields {
		slogAttrs = append(slogAttrs, key, value)
		zapFields = append(zapFields, zap.Any(key, value))
	}

	return &Logger{
		slog: l.slog.With(slogAttrs...),
		zap:  l.zap.With(zapFields...),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.slog.Debug(msg, args...)
	l.zap.Debug(msg, convertToZapFields(args)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.slog.Info(msg, args...)
	l.zap.Info(msg, convertToZapFields(args)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.slog.Warn(msg, args...)
	l.zap.Warn(msg, convertToZapFields(args)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.slog.Error(msg, args...)
	l.zap.Error(msg, convertToZapFields(args)...)
}

// convertToZapFields converts key/value pairs to zap fields; a trailing odd key is dropped
func convertToZapFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if err, isErr := args[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

// LogRequest logs an HTTP request
func (l *Logger) LogRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	l.WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
	}).Info("HTTP request completed")
}

// LogRoute logs the final routing decision for one prompt
func (l *Logger) LogRoute(ctx context.Context, provider string, confidence float64, path string, duration time.Duration) {
	l.WithFields(map[string]interface{}{
		"provider":    provider,
		"confidence":  confidence,
		"path":        path,
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
	}).Info("prompt routed")
}

// LogDispatchFailure logs a provider that failed during dispatch
func (l *Logger) LogDispatchFailure(ctx context.Context, provider string, err error) {
	l.WithFields(map[string]interface{}{
		"provider": provider,
	}).Error("provider invocation failed", "error", err)
}

// LogFallback logs a transition to the direct text-generation fallback
func (l *Logger) LogFallback(ctx context.Context, reason, failedProvider string) {
	l.WithFields(map[string]interface{}{
		"reason":          reason,
		"failed_provider": failedProvider,
	}).Warn("falling back to direct generation")
}

// LogGeneration logs a call to the text-generation backend
func (l *Logger) LogGeneration(ctx context.Context, backend, model, status string, duration time.Duration, tokens int) {
	l.WithFields(map[string]interface{}{
		"backend":     backend,
		"model":       model,
		"status":      status,
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
		"tokens":      tokens,
	}).Info("text generation completed")
}

// LogCircuitBreaker logs a circuit breaker state change
func (l *Logger) LogCircuitBreaker(name, from, to string) {
	l.WithFields(map[string]interface{}{
		"breaker": name,
		"from":    from,
		"to":      to,
	}).Warn("Circuit breaker state changed")
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// GetSlog returns the slog logger
func (l *Logger) GetSlog() *slog.Logger {
	return l.slog
}

// GetZap returns the zap logger
func (l *Logger) GetZap() *zap.Logger {
	return l.zap
}
