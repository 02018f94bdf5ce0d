package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: buf})
}

func TestLogger_AddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.Info("hello", "k", "v")
	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "k=v") {
		t.Errorf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentWorker).Warn("switched")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("component not replaced: %s", buf.String())
	}
}

func TestLogFields_WithEntry(t *testing.T) {
	f := NewFields().WithEntry("u1", "2025-11-25", decimal.RequireFromString("329.7"), 3)
	if f[FieldPnL] != "329.70" || f[FieldVersion] != int64(3) || f[FieldUserID] != "u1" {
		t.Errorf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 8 {
		t.Errorf("expected 8 slice items, got %d", len(f.ToSlice()))
	}
}

func TestLogFields_WithErrorNil(t *testing.T) {
	f := NewFields().WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got.Info("inside")
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request id missing: %s", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger")
	}
}

func TestStructuredLogger_LevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	r := httptest.NewRequest(http.MethodPost, "/entries", nil)

	sl.LogHTTPEnd(context.Background(), r, 422, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected warn level: %s", buf.String())
	}

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, 503, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("expected error level: %s", buf.String())
	}

	buf.Reset()
	sl.LogWriteFailed(context.Background(), OpUpsert, errors.New("disk full"), NewFields().WithMonth(2025, 11))
	for _, part := range []string{"level=ERROR", `error="disk full"`, "operation=upsert", "month=11"} {
		if !strings.Contains(buf.String(), part) {
			t.Errorf("missing %q in %s", part, buf.String())
		}
	}
}

func TestStructuredLogger_GoalChanged(t *testing.T) {
	var buf bytes.Buffer
	NewStructuredLogger(newBufferLogger(&buf)).LogGoalChanged(context.Background(), "alice", 2025, 11, OpDelete)

	for _, part := range []string{"level=INFO", "user_id=alice", "year=2025", "operation=delete"} {
		if !strings.Contains(buf.String(), part) {
			t.Errorf("missing %q in %s", part, buf.String())
		}
	}
}
