package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateKey(t *testing.T) {
	d, err := ParseDateKey(" 2024-03-05 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Key() != "2024-03-05" {
		t.Fatalf("expected 2024-03-05, got %s", d.Key())
	}
	for _, in := range []string{"", "2024-3-5", "05/03/2024", "2024-02-30"} {
		if _, err := ParseDateKey(in); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestYearMonthBounds(t *testing.T) {
	cases := []struct {
		ym    YearMonth
		first string
		last  string
	}{
		{YearMonth{2024, 2}, "2024-02-01", "2024-02-29"},
		{YearMonth{2023, 2}, "2023-02-01", "2023-02-28"},
		{YearMonth{2024, 12}, "2024-12-01", "2024-12-31"},
		{YearMonth{2024, 4}, "2024-04-01", "2024-04-30"},
	}
	for _, tc := range cases {
		if got := tc.ym.FirstDay().Key(); got != tc.first {
			t.Fatalf("%s first day: expected %s, got %s", tc.ym, tc.first, got)
		}
		if got := tc.ym.LastDay().Key(); got != tc.last {
			t.Fatalf("%s last day: expected %s, got %s", tc.ym, tc.last, got)
		}
	}
}

func TestYearMonthNavigation(t *testing.T) {
	if got := (YearMonth{2024, 12}).Next(); got != (YearMonth{2025, 1}) {
		t.Fatalf("expected 2025-01, got %s", got)
	}
	if got := (YearMonth{2024, 1}).Prev(); got != (YearMonth{2023, 12}) {
		t.Fatalf("expected 2023-12, got %s", got)
	}
	if err := (YearMonth{2024, 13}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if err := (YearMonth{2024, 0}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestEntryValidate(t *testing.T) {
	neg := -1
	zero := 0
	good := Entry{UserID: "u1", Date: NewDate(2024, 3, 5), PnL: decimal.NewFromInt(-10), Trades: &zero}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Entry{
		{UserID: "", Date: NewDate(2024, 3, 5)},
		{UserID: "u1"},
		{UserID: "u1", Date: NewDate(2024, 3, 5), Trades: &neg},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	good := MonthlyGoal{UserID: "u1", Month: YearMonth{2024, 3}, Amount: decimal.NewFromInt(2000)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); !errors.Is(err, ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal, got %v", err)
	}
}

func TestCalendarEventCoverage(t *testing.T) {
	end := NewDate(2024, 3, 12)
	ev := CalendarEvent{
		UserID:    "u1",
		Title:     " FOMC week ",
		StartDate: NewDate(2024, 3, 10),
		EndDate:   &end,
		Type:      EventMarket,
	}
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if ev.Title != "FOMC week" {
		t.Fatalf("expected trimmed title, got %q", ev.Title)
	}
	if ev.Color != "#EF4444" {
		t.Fatalf("expected market color, got %s", ev.Color)
	}
	if !ev.Covers(NewDate(2024, 3, 11)) || ev.Covers(NewDate(2024, 3, 13)) {
		t.Fatalf("unexpected coverage")
	}
	if !ev.Overlaps(NewDate(2024, 3, 12), NewDate(2024, 3, 31)) {
		t.Fatalf("expected overlap with rest of month")
	}
	if ev.Overlaps(NewDate(2024, 4, 1), NewDate(2024, 4, 30)) {
		t.Fatalf("did not expect overlap with april")
	}
}

func TestCalendarEventValidate(t *testing.T) {
	before := NewDate(2024, 3, 1)
	base := CalendarEvent{UserID: "u1", Title: "t", StartDate: NewDate(2024, 3, 10), Type: EventNews}
	cases := []struct {
		name string
		mod  func(*CalendarEvent)
		want error
	}{
		{"empty title", func(e *CalendarEvent) { e.Title = "  " }, ErrEmptyTitle},
		{"bad type", func(e *CalendarEvent) { e.Type = "party" }, ErrInvalidEventType},
		{"reversed range", func(e *CalendarEvent) { e.EndDate = &before }, ErrInvalidDateRange},
		{"bad color", func(e *CalendarEvent) { e.Color = "red" }, ErrInvalidColor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := base
			tc.mod(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOutcomeOf(t *testing.T) {
	if OutcomeOf(decimal.RequireFromString("0.01")) != OutcomeWin {
		t.Fatalf("expected win")
	}
	if OutcomeOf(decimal.RequireFromString("-0.01")) != OutcomeLoss {
		t.Fatalf("expected loss")
	}
	if OutcomeOf(decimal.Zero) != OutcomeFlat {
		t.Fatalf("expected flat")
	}
}
