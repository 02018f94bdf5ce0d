// Package trace tags each request with an ID and logs its outcome.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "pnljournal/internal/log"
)

type ContextKey string

const (
	RequestIDKey    ContextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"

	maxIncomingIDLength = 64
)

type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.StructuredLogger

	requests, errors atomic.Int64
	lastUS, totalUS  atomic.Int64
}

// Metrics is a snapshot of the request counters. Durations are microseconds.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	LastDurationUS  int64
	TotalDurationUS int64
}

// NewMiddleware builds the tracer. extractIP may be nil.
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentTrace)),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxIncomingIDLength {
			id = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		r = r.WithContext(ctx)

		m.requests.Add(1)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.lastUS.Store(elapsed.Microseconds())
		m.totalUS.Add(elapsed.Microseconds())
		if rec.status >= http.StatusInternalServerError {
			m.errors.Add(1)
		}

		var clientIP string
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		m.logger.LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds(), clientIP)
	})
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status, s.written = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// RequestIDFromRequest adapts GetRequestID for log.RequestIDMiddleware.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:   m.requests.Load(),
		TotalErrors:     m.errors.Load(),
		LastDurationUS:  m.lastUS.Load(),
		TotalDurationUS: m.totalUS.Load(),
	}
}
