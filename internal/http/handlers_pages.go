package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/core"
	applog "pnljournal/internal/log"
	"pnljournal/internal/store"
)

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender,
			"template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// loadCalendar reads ?year=&month=&window= and builds the month view.
func (s *Server) loadCalendar(w http.ResponseWriter, r *http.Request) (calendarView, bool) {
	query := r.URL.Query()
	ym, err := ParseMonthParams(query, s.now())
	if err != nil {
		BadRequestError("Invalid year or month").Write(w)
		return calendarView{}, false
	}
	window, err := aggregate.ParseWindow(query.Get("window"))
	if err != nil {
		BadRequestError("Unknown window: must be one of 7d, 30d, all").Write(w)
		return calendarView{}, false
	}

	d, err := s.journal.Dashboard(r.Context(), s.userID(r), ym, window)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard load failed",
			applog.FieldError, err,
			applog.FieldYear, ym.Year,
			applog.FieldMonth, ym.Month)
		InternalServerError("Failed to load journal").Write(w)
		return calendarView{}, false
	}
	return buildCalendar(d, window, s.now()), true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadCalendar(w, r)
	if !ok {
		return
	}
	s.render(w, r, "index.html", view)
}

// handleMonthPanel renders the grid, stats and goal partial swapped in by htmx.
func (s *Server) handleMonthPanel(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadCalendar(w, r)
	if !ok {
		return
	}
	s.render(w, r, "month-panel", view)
}

type entryFormView struct {
	Date   string
	PnL    string
	Trades string
	Exists bool
	Events []core.CalendarEvent
}

// handleEntryForm renders the entry editor for ?date=, prefilled when the day
// already has an entry.
func (s *Server) handleEntryForm(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDateKey(r.URL.Query().Get("date"))
	if err != nil {
		BadRequestError("Invalid date").Write(w)
		return
	}
	user := s.userID(r)

	view := entryFormView{Date: date.Key()}
	e, err := s.journal.GetEntry(r.Context(), user, date)
	switch {
	case err == nil:
		view.Exists = true
		view.PnL = e.PnL.StringFixed(2)
		if e.Trades != nil {
			view.Trades = strconv.Itoa(*e.Trades)
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Entry load failed",
			applog.FieldError, err,
			applog.FieldDate, date.Key())
		InternalServerError("Failed to load entry").Write(w)
		return
	}

	if view.Events, err = s.journal.ListEventsByDate(r.Context(), user, date); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Events load failed",
			applog.FieldError, err,
			applog.FieldDate, date.Key())
	}

	s.render(w, r, "entry-form", view)
}
