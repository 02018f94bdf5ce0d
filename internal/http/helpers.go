package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/core"
	applog "pnljournal/internal/log"
	"pnljournal/internal/store"
)

// UserHeader names the header carrying the journal owner.
const UserHeader = "X-User-ID"

const maxUserIDLength = 64

// userID returns the caller's user, falling back to the configured default.
func (s *Server) userID(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get(UserHeader)); id != "" && len(id) <= maxUserIDLength {
		return id
	}
	return s.defaultUser
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrInvalidMonth, core.ErrInvalidPnL,
		core.ErrInvalidTrades, core.ErrInvalidGoal, core.ErrEmptyUser,
		core.ErrEmptyTitle, core.ErrTitleTooLong, core.ErrInvalidEventType,
		core.ErrInvalidDateRange, core.ErrInvalidColor, aggregate.ErrUnknownWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// apiStatus maps a service error to the JSON API status code.
func apiStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case isValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeAPIError logs server-side failures and hides their details.
func writeAPIError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := apiStatus(err)
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "API request failed",
			applog.FieldOperation, op,
			applog.FieldError, err)
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}
