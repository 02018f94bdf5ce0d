package http

import (
	"encoding/json"
	"html/template"
	"time"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/core"
	"pnljournal/internal/services"
)

// calendarCell is one square of the month grid. Day is 0 for padding cells.
type calendarCell struct {
	Day     int
	Date    string
	Outcome core.Outcome
	Entry   *core.Entry
	Events  []core.CalendarEvent
	IsToday bool
}

type calendarView struct {
	Month     core.YearMonth
	Title     string
	Prev      core.YearMonth
	Next      core.YearMonth
	Weekdays  []string
	Weeks     [][]calendarCell
	Dashboard services.Dashboard
	Window    aggregate.Window
	Windows   []aggregate.Window
}

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// buildCalendar lays the dashboard out in Sunday-first weeks.
func buildCalendar(d services.Dashboard, window aggregate.Window, today time.Time) calendarView {
	ym := d.Month
	first := ym.FirstDay()
	todayKey := today.Format(core.DateLayout)

	var cells []calendarCell
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, calendarCell{Outcome: core.OutcomeEmpty})
	}
	for day := 1; day <= ym.DaysIn(); day++ {
		date := core.NewDate(ym.Year, ym.Month, day)
		cell := calendarCell{
			Day:     day,
			Date:    date.Key(),
			Outcome: core.OutcomeEmpty,
			IsToday: date.Key() == todayKey,
		}
		if e, ok := d.EntryFor(day); ok {
			cell.Entry = &e
			cell.Outcome = core.OutcomeOf(e.PnL)
		}
		for _, ev := range d.Events {
			if ev.Covers(date) {
				cell.Events = append(cell.Events, ev)
			}
		}
		cells = append(cells, cell)
	}
	for len(cells)%7 != 0 {
		cells = append(cells, calendarCell{Outcome: core.OutcomeEmpty})
	}

	weeks := make([][]calendarCell, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}

	return calendarView{
		Month:     ym,
		Title:     time.Month(ym.Month).String() + " " + first.Format("2006"),
		Prev:      ym.Prev(),
		Next:      ym.Next(),
		Weekdays:  weekdays,
		Weeks:     weeks,
		Dashboard: d,
		Window:    window,
		Windows:   aggregate.Windows(),
	}
}

var templateFuncs = template.FuncMap{
	"signedUSD": core.FormatSignedUSD,
	"usd":       core.FormatUSD,
	"percent":   core.FormatPercent,
	"seriesJSON": func(s aggregate.Series) string {
		b, err := json.Marshal(toSeriesJSON(s))
		if err != nil {
			return "{}"
		}
		return string(b)
	},
}
