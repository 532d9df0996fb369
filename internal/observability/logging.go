// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLogger replaces the handler behind GlobalLogger, e.g. with the
// context-aware request logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key carrying the request correlation id.
const CorrelationID LogContextKey = "correlation_id"

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableStoreLogging bool
	EnableWSLogging    bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableStoreLogging: true,
	EnableWSLogging:    true,
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// StoreLogger provides structured logging for one repository family.
type StoreLogger struct {
	family string
	logger *Logger
}

// NewStoreLogger creates a StoreLogger for the given family.
func NewStoreLogger(family string) *StoreLogger {
	return &StoreLogger{family: family}
}

func (l *StoreLogger) log() *Logger {
	if l.logger != nil {
		return l.logger
	}
	return GlobalLogger
}

// LogSave logs a full-scope write.
func (l *StoreLogger) LogSave(ctx context.Context, key string, size int) {
	if !Config.EnableStoreLogging {
		return
	}
	l.log().DebugContext(ctx, "store save",
		slog.String("family", l.family),
		slog.String("key", key),
		slog.Int("bytes", size),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogDecodeFailure logs a value that could not be decoded and was replaced
// by the family's empty default.
func (l *StoreLogger) LogDecodeFailure(ctx context.Context, key string, err error) {
	if !Config.EnableStoreLogging {
		return
	}
	l.log().WarnContext(ctx, "store value discarded",
		slog.String("family", l.family),
		slog.String("key", key),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogQuota logs a write rejected for capacity.
func (l *StoreLogger) LogQuota(ctx context.Context, key string, size int) {
	if !Config.EnableStoreLogging {
		return
	}
	l.log().WarnContext(ctx, "store quota exceeded",
		slog.String("family", l.family),
		slog.String("key", key),
		slog.Int("bytes", size),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a backend failure.
func (l *StoreLogger) LogError(ctx context.Context, err error, operation, key string) {
	if !Config.EnableStoreLogging {
		return
	}
	l.log().ErrorContext(ctx, "store error",
		slog.String("family", l.family),
		slog.String("operation", operation),
		slog.String("key", key),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// WSLogger provides structured logging for WebSocket streams.
type WSLogger struct {
	stream string
}

// NewWSLogger creates a new WSLogger for the given stream.
func NewWSLogger(stream string) *WSLogger {
	return &WSLogger{stream: stream}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, identity string) {
	if !Config.EnableWSLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "websocket connected",
		slog.String("stream", l.stream),
		slog.String("identity", identity),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, identity, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "websocket disconnected",
		slog.String("stream", l.stream),
		slog.String("identity", identity),
		slog.String("reason", reason),
	)
}
