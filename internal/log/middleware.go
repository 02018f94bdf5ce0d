package log

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), "unknown")
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(NewFields().WithRequestID(extractRequestID(r)).ToSlice()...)
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger writes the journal's recurring log records with a fixed
// field set, so they can be filtered by operation and component.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func levelForStatus(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogHTTPEnd logs the completion of an HTTP request. 4xx log at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Referer()).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.unbound().Log(ctx, levelForStatus(statusCode), "HTTP request completed", fields.ToSlice()...)
}

// LogEntrySaved logs a successful entry upsert.
func (sl *StructuredLogger) LogEntrySaved(ctx context.Context, userID, date string, pnl decimal.Decimal, version int64) {
	fields := NewFields().
		WithEntry(userID, date, pnl, version).
		WithOperation(OpUpsert).
		WithComponent(ComponentJournal)

	sl.logger.unbound().InfoContext(ctx, "Entry saved", fields.ToSlice()...)
}

// LogGoalChanged logs a goal upsert or delete for a month.
func (sl *StructuredLogger) LogGoalChanged(ctx context.Context, userID string, year, month int, op string) {
	fields := NewFields().
		WithMonth(year, month).
		WithOperation(op).
		WithComponent(ComponentJournal)
	fields[FieldUserID] = userID

	sl.logger.unbound().InfoContext(ctx, "Goal changed", fields.ToSlice()...)
}

// LogWriteFailed logs a journal write that failed for a reason other than
// invalid input.
func (sl *StructuredLogger) LogWriteFailed(ctx context.Context, op string, err error, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(op).WithComponent(ComponentJournal)

	sl.logger.unbound().ErrorContext(ctx, "Journal write failed", fields.ToSlice()...)
}
