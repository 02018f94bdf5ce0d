package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"pnljournal/internal/core"
)

// Events sent in HX-Trigger after a write. The month panel listens for them
// and reloads when the payload names the month it shows.
const (
	EventEntrySaved   = "entry:saved"
	EventEntryDeleted = "entry:deleted"
	EventGoalSaved    = "goal:saved"
	EventGoalCleared  = "goal:cleared"
	EventFormReset    = "form:reset"
	EventNotification = "show-notification"
)

type monthChange struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type notification struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Duration int    `json:"duration"`
}

// HTMXResponseBuilder accumulates HX-Trigger events and an HTML fragment.
type HTMXResponseBuilder struct {
	status   int
	triggers map[string]any
	html     string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{status: http.StatusOK, triggers: map[string]any{}}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// MonthChanged announces a write affecting the month of ym.
func (b *HTMXResponseBuilder) MonthChanged(event string, ym core.YearMonth) *HTMXResponseBuilder {
	b.triggers[event] = monthChange{Year: ym.Year, Month: ym.Month}
	return b
}

// ResetForm asks the entry form to clear itself.
func (b *HTMXResponseBuilder) ResetForm() *HTMXResponseBuilder {
	b.triggers[EventFormReset] = struct{}{}
	return b
}

// Notify shows a toast for three seconds, or five for errors.
func (b *HTMXResponseBuilder) Notify(kind, message string) *HTMXResponseBuilder {
	duration := 3000
	if kind == "error" {
		duration = 5000
	}
	b.triggers[EventNotification] = notification{Type: kind, Message: message, Duration: duration}
	return b
}

// HTML sets a fragment body. The caller escapes dynamic parts.
func (b *HTMXResponseBuilder) HTML(fragment string) *HTMXResponseBuilder {
	b.html = fragment
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	if len(b.triggers) > 0 {
		if payload, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(payload))
		}
	}
	if b.html != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(b.status)
	if b.html != "" {
		_, _ = w.Write([]byte(b.html))
	}
}

// ErrorResponse renders message, escaped, in an error fragment.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		HTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsError is sent when a client exceeds the write rate limit.
func TooManyRequestsError() *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.")
}
