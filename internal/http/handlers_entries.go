package http

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"sync/atomic"

	"pnljournal/internal/core"
	applog "pnljournal/internal/log"
	"pnljournal/internal/store"
)

// handleSaveEntry upserts the entry for a day from form or JSON fields
// date, pnl and trades.
func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	date, err := core.ParseDateKey(parser.Get("date"))
	if err != nil {
		UnprocessableEntityError("Invalid date: use YYYY-MM-DD").Write(w)
		return
	}
	pnl, err := core.ParsePnL(parser.Get("pnl"))
	if err != nil {
		UnprocessableEntityError("Invalid P&L amount").Write(w)
		return
	}
	trades, err := core.ParseTrades(parser.Get("trades"))
	if err != nil {
		UnprocessableEntityError("Invalid trade count: must be a whole number of zero or more").Write(w)
		return
	}

	ctx := r.Context()
	logger := applog.FromContext(ctx)
	saved, err := s.journal.SaveEntry(ctx, core.Entry{
		UserID: s.userID(r),
		Date:   date,
		PnL:    pnl,
		Trades: trades,
	})
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError("Invalid entry: " + err.Error()).Write(w)
			return
		}
		applog.NewStructuredLogger(logger).LogWriteFailed(ctx, applog.OpUpsert, err,
			applog.NewFields().WithEntry(s.userID(r), date.Key(), pnl, 0))
		InternalServerError("Failed to save entry").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.entriesSaved, 1)
	applog.NewStructuredLogger(logger).LogEntrySaved(ctx, saved.UserID, saved.Date.Key(), saved.PnL, saved.Version)

	NewHTMXResponse().
		MonthChanged(EventEntrySaved, date.YearMonth()).
		ResetForm().
		Notify("success", "Entry saved").
		HTML(`<div class="success">Saved ` + template.HTMLEscapeString(date.Key()) + `: ` +
			template.HTMLEscapeString(core.FormatSignedUSD(saved.PnL)) + `</div>`).
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDateKey(r.PathValue("date"))
	if err != nil {
		BadRequestError("Invalid date").Write(w)
		return
	}

	ctx := r.Context()
	if err := s.journal.DeleteEntry(ctx, s.userID(r), date); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Entry not found").Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogWriteFailed(ctx, applog.OpDelete, err,
			applog.NewFields().WithMonth(date.Year(), date.Month()))
		InternalServerError("Failed to delete entry").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.entriesDeleted, 1)
	NewHTMXResponse().
		MonthChanged(EventEntryDeleted, date.YearMonth()).
		Notify("success", "Entry deleted").
		Write(w)
}

// handleSaveGoal upserts the goal for year and month; blank values mean the
// current month.
func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	ym, err := ParseMonthParams(url.Values{
		"year":  {parser.Get("year")},
		"month": {parser.Get("month")},
	}, s.now())
	if err != nil {
		UnprocessableEntityError("Invalid year or month").Write(w)
		return
	}
	amount, err := core.ParseGoal(parser.Get("goal"))
	if err != nil {
		UnprocessableEntityError("Goal must be a positive amount").Write(w)
		return
	}

	ctx := r.Context()
	user := s.userID(r)
	sl := applog.NewStructuredLogger(applog.FromContext(ctx))
	if err := s.journal.SetGoal(ctx, core.MonthlyGoal{UserID: user, Month: ym, Amount: amount}); err != nil {
		if isValidationError(err) {
			UnprocessableEntityError("Invalid goal: " + err.Error()).Write(w)
			return
		}
		sl.LogWriteFailed(ctx, applog.OpUpsert, err, applog.NewFields().WithMonth(ym.Year, ym.Month))
		InternalServerError("Failed to save goal").Write(w)
		return
	}
	sl.LogGoalChanged(ctx, user, ym.Year, ym.Month, applog.OpUpsert)

	atomic.AddInt64(&s.appMetrics.goalsSaved, 1)
	NewHTMXResponse().
		MonthChanged(EventGoalSaved, ym).
		Notify("success", "Goal saved").
		HTML(`<div class="success">Goal for ` + ym.String() + `: ` +
			template.HTMLEscapeString(core.FormatUSD(amount)) + `</div>`).
		Write(w)
}

func (s *Server) handleClearGoal(w http.ResponseWriter, r *http.Request) {
	ym, err := parsePathMonth(r)
	if err != nil {
		BadRequestError("Invalid year or month").Write(w)
		return
	}

	ctx := r.Context()
	user := s.userID(r)
	sl := applog.NewStructuredLogger(applog.FromContext(ctx))
	if err := s.journal.ClearGoal(ctx, user, ym); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("No goal set for this month").Write(w)
			return
		}
		sl.LogWriteFailed(ctx, applog.OpDelete, err, applog.NewFields().WithMonth(ym.Year, ym.Month))
		InternalServerError("Failed to clear goal").Write(w)
		return
	}
	sl.LogGoalChanged(ctx, user, ym.Year, ym.Month, applog.OpDelete)

	NewHTMXResponse().
		MonthChanged(EventGoalCleared, ym).
		Write(w)
}
