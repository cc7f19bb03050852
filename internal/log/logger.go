package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	correlationIDAttr   = "correlation_id"
	maxCorrelationIDLen = 128
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	loggerKey
)

// Logger is a slog JSON logger. Request-scoped copies carry a correlation_id
// attribute.
type Logger struct {
	*slog.Logger
}

func NewLoggerWithJSONOutput() *Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter builds a JSON logger writing to w. The level comes from
// LOG_LEVEL (debug, info, warn, error) and defaults to info.
func NewLoggerWithWriter(w io.Writer) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFromEnv()})),
	}
}

func levelFromEnv() slog.Level {
	var level slog.Level
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}
	if raw == "" || level.UnmarshalText([]byte(raw)) != nil {
		return slog.LevelInfo
	}
	return level
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func (l *Logger) WithCorrelationID(ctx context.Context) *Logger {
	return l.With(correlationIDAttr, GetOrGenerateCorrelationID(ctx))
}

// NormalizeCorrelationID returns id when it is short printable ASCII and a
// fresh id otherwise, so clients cannot inject arbitrary text into logs.
func NormalizeCorrelationID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxCorrelationIDLen {
		return GenerateCorrelationID()
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return GenerateCorrelationID()
		}
	}
	return id
}

func GenerateCorrelationID() string {
	return uuid.NewString()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

func GetOrGenerateCorrelationID(ctx context.Context) string {
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return id
	}
	return GenerateCorrelationID()
}

func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLoggerInstanceFromContext returns the logger injected for the request,
// or fallback tagged with the context's correlation id.
func GetLoggerInstanceFromContext(ctx context.Context, fallbackLogger *Logger) *Logger {
	if fallbackLogger == nil {
		fallbackLogger = NewLoggerWithJSONOutput()
	}
	if ctx == nil {
		return fallbackLogger
	}

	if l, ok := ctx.Value(loggerKey).(*Logger); ok && l != nil {
		return l
	}

	return fallbackLogger.WithCorrelationID(ctx)
}
