package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"pnljournal/internal/csvio"
	applog "pnljournal/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady reports 503 until templates are loaded and the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"templates": "ok", "storage": "ok"}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
	}
	if err := s.journal.Ping(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
	}

	code, status := http.StatusOK, "ready"
	for _, v := range checks {
		if v != "ok" {
			code, status = http.StatusServiceUnavailable, "not_ready"
		}
	}
	writeJSON(w, code, map[string]any{
		"status":             status,
		"timestamp":          time.Now().Format(time.RFC3339),
		"checks":             checks,
		"rate_limit_clients": s.rateLimiter.ActiveClients(),
	})
}

type metric struct {
	name, kind, help string
	value            int64
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traced := s.traceMiddleware.GetMetrics()
	limited := s.rateLimiter.GetMetrics()
	app := s.appMetrics

	metrics := []metric{
		{"http_requests_total", "counter", "HTTP requests served", traced.TotalRequests},
		{"http_server_errors_total", "counter", "Responses with a 5xx status", traced.TotalErrors},
		{"entries_saved_total", "counter", "Journal entries saved", atomic.LoadInt64(&app.entriesSaved)},
		{"entries_deleted_total", "counter", "Journal entries deleted", atomic.LoadInt64(&app.entriesDeleted)},
		{"goals_saved_total", "counter", "Monthly goals saved", atomic.LoadInt64(&app.goalsSaved)},
		{"events_changed_total", "counter", "Calendar event writes", atomic.LoadInt64(&app.eventsChanged)},
		{"rate_limit_hits_total", "counter", "Writes rejected by the rate limiter", limited.TotalHits},
		{"active_rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limited.ClientCount},
		{"suspicious_requests_total", "counter", "Requests flagged as scans", s.securityDetector.GetMetrics().SuspiciousRequests},
		{"uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(app.uptime).Seconds())},
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.journal.ExportEntries(ctx, s.userID(r))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Entry export failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpExport)
		http.Error(w, "failed to export entries", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := csvio.WriteEntries(&buf, entries); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "CSV encoding failed", applog.FieldError, err)
		http.Error(w, "failed to export entries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="entries.csv"`)
	_, _ = buf.WriteTo(w)
}
