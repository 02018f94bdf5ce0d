package http

import (
	"net/http"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/core"
	"pnljournal/internal/services"
)

// Money and percentages are rendered as fixed-point strings so clients never
// see binary float rounding.

type entryJSON struct {
	Date    string `json:"date"`
	PnL     string `json:"pnl"`
	Trades  *int   `json:"trades"`
	Outcome string `json:"outcome"`
	Version int64  `json:"version"`
}

type statsJSON struct {
	TotalPnL    string `json:"total_pnl"`
	WinningDays int    `json:"winning_days"`
	LosingDays  int    `json:"losing_days"`
	TradingDays int    `json:"trading_days"`
	TotalTrades int    `json:"total_trades"`
	WinRate     string `json:"win_rate"`
}

type goalProgressJSON struct {
	Goal       string `json:"goal"`
	Current    string `json:"current"`
	Percentage string `json:"percentage"`
	Remaining  string `json:"remaining"`
	OverGoal   bool   `json:"over_goal"`
}

type monthJSON struct {
	Year    int               `json:"year"`
	Month   int               `json:"month"`
	Stats   statsJSON         `json:"stats"`
	Goal    *goalProgressJSON `json:"goal"`
	Entries []entryJSON       `json:"entries"`
}

type pointJSON struct {
	Date          string `json:"date"`
	DailyPnL      string `json:"daily_pnl"`
	CumulativePnL string `json:"cumulative_pnl"`
}

type summaryJSON struct {
	Days       int     `json:"days"`
	TotalPnL   string  `json:"total_pnl"`
	WindowPnL  string  `json:"window_pnl"`
	WinRate    string  `json:"win_rate"`
	BestDay    string  `json:"best_day"`
	WorstDay   string  `json:"worst_day"`
	AverageDay float64 `json:"average_day"`
	MedianDay  float64 `json:"median_day"`
	StdDev     float64 `json:"std_dev"`
}

type seriesJSON struct {
	Window  string      `json:"window"`
	Points  []pointJSON `json:"points"`
	Summary summaryJSON `json:"summary"`
}

type goalJSON struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Amount string `json:"amount"`
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		Date:    e.Date.Key(),
		PnL:     e.PnL.StringFixed(2),
		Trades:  e.Trades,
		Outcome: string(core.OutcomeOf(e.PnL)),
		Version: e.Version,
	}
}

func toMonthJSON(d services.Dashboard) monthJSON {
	out := monthJSON{
		Year:  d.Month.Year,
		Month: d.Month.Month,
		Stats: statsJSON{
			TotalPnL:    d.Stats.TotalPnL.StringFixed(2),
			WinningDays: d.Stats.WinningDays,
			LosingDays:  d.Stats.LosingDays,
			TradingDays: d.Stats.TradingDays,
			TotalTrades: d.Stats.TotalTrades,
			WinRate:     d.Stats.WinRate().StringFixed(2),
		},
		Entries: make([]entryJSON, 0, len(d.Entries)),
	}
	if d.HasGoal {
		out.Goal = &goalProgressJSON{
			Goal:       d.Progress.Goal.StringFixed(2),
			Current:    d.Progress.Current.StringFixed(2),
			Percentage: d.Progress.Percentage.StringFixed(2),
			Remaining:  d.Progress.Remaining.StringFixed(2),
			OverGoal:   d.Progress.OverGoal(),
		}
	}
	for _, e := range d.Entries {
		out.Entries = append(out.Entries, toEntryJSON(e))
	}
	return out
}

func toSeriesJSON(s aggregate.Series) seriesJSON {
	out := seriesJSON{
		Window: string(s.Window),
		Points: make([]pointJSON, 0, len(s.Points)),
		Summary: summaryJSON{
			Days:       s.Summary.Days,
			TotalPnL:   s.Summary.TotalPnL.StringFixed(2),
			WindowPnL:  s.Summary.WindowPnL.StringFixed(2),
			WinRate:    s.Summary.WinRate.StringFixed(2),
			BestDay:    s.Summary.BestDay.StringFixed(2),
			WorstDay:   s.Summary.WorstDay.StringFixed(2),
			AverageDay: s.Summary.AverageDay,
			MedianDay:  s.Summary.MedianDay,
			StdDev:     s.Summary.StdDev,
		},
	}
	for _, p := range s.Points {
		out.Points = append(out.Points, pointJSON{
			Date:          p.Date,
			DailyPnL:      p.DailyPnL.StringFixed(2),
			CumulativePnL: p.CumulativePnL.StringFixed(2),
		})
	}
	return out
}

func (s *Server) handleAPIMonth(w http.ResponseWriter, r *http.Request) {
	ym, err := parsePathMonth(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.journal.MonthSummary(r.Context(), s.userID(r), ym)
	if err != nil {
		writeAPIError(w, r, "month summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthJSON(d))
}

func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	window, err := aggregate.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unknown window: must be one of 7d, 30d, all")
		return
	}

	series, err := s.journal.Series(r.Context(), s.userID(r), window)
	if err != nil {
		writeAPIError(w, r, "series", err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesJSON(series))
}

func (s *Server) handleAPIGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.journal.ListGoals(r.Context(), s.userID(r))
	if err != nil {
		writeAPIError(w, r, "list goals", err)
		return
	}

	out := make([]goalJSON, 0, len(goals))
	for _, g := range goals {
		out = append(out, goalJSON{Year: g.Month.Year, Month: g.Month.Month, Amount: g.Amount.StringFixed(2)})
	}
	writeJSON(w, http.StatusOK, out)
}
