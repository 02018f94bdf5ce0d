package aggregate

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intp(n int) *int { return &n }

func entry(key, pnl string, trades *int) core.Entry {
	date, err := core.ParseDateKey(key)
	if err != nil {
		panic(err)
	}
	return core.Entry{UserID: "u1", Date: date, PnL: d(pnl), Trades: trades}
}

func novemberEntries() []core.Entry {
	return []core.Entry{
		entry("2025-11-28", "-501.95", intp(4)),
		entry("2025-11-25", "329.73", intp(2)),
		entry("2025-11-26", "-299.31", nil),
		entry("2025-11-27", "0", intp(1)),
	}
}

func TestComputeMonthlyStats(t *testing.T) {
	cases := []struct {
		name    string
		entries []core.Entry
		want    MonthlyStats
	}{
		{
			name:    "empty month",
			entries: nil,
			want:    MonthlyStats{TotalPnL: decimal.Zero},
		},
		{
			name:    "mixed month with flat day",
			entries: novemberEntries(),
			want: MonthlyStats{
				TotalPnL:    d("-471.53"),
				WinningDays: 1,
				LosingDays:  2,
				TradingDays: 3,
				TotalTrades: 7,
			},
		},
		{
			name: "explicit zero trades",
			entries: []core.Entry{
				entry("2024-03-01", "100", intp(0)),
				entry("2024-03-02", "50.50", nil),
			},
			want: MonthlyStats{TotalPnL: d("150.50"), WinningDays: 2, TradingDays: 2},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeMonthlyStats(tc.entries)
			if diff := cmp.Diff(tc.want, got, decimalEqual); diff != "" {
				t.Fatalf("stats mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeMonthlyStatsBuckets(t *testing.T) {
	entries := novemberEntries()
	s := ComputeMonthlyStats(entries)
	if s.WinningDays+s.LosingDays > len(entries) {
		t.Fatalf("buckets exceed entries")
	}
	if s.WinningDays+s.LosingDays == len(entries) {
		t.Fatalf("flat day must not be counted in a bucket")
	}
	if again := ComputeMonthlyStats(entries); !cmp.Equal(s, again, decimalEqual) {
		t.Fatalf("recomputation differs")
	}
	if entries[0].Date.Key() != "2025-11-28" {
		t.Fatalf("input was reordered")
	}
}

func TestMonthlyStatsWinRate(t *testing.T) {
	if !(MonthlyStats{}).WinRate().IsZero() {
		t.Fatalf("expected zero win rate without trading days")
	}
	s := MonthlyStats{WinningDays: 1, LosingDays: 3, TradingDays: 4}
	if !s.WinRate().Equal(d("25")) {
		t.Fatalf("expected 25, got %s", s.WinRate())
	}
}

func TestComputeGoalProgress(t *testing.T) {
	goal := func(s string) *decimal.Decimal { v := d(s); return &v }
	cases := []struct {
		name  string
		goal  *decimal.Decimal
		stats MonthlyStats
		want  GoalProgress
		over  bool
	}{
		{
			name:  "losing month",
			goal:  goal("1000"),
			stats: MonthlyStats{TotalPnL: d("-471.53")},
			want:  GoalProgress{Goal: d("1000"), Current: d("-471.53"), Percentage: decimal.Zero, Remaining: d("1471.53")},
		},
		{
			name:  "empty month",
			goal:  goal("500"),
			stats: ComputeMonthlyStats(nil),
			want:  GoalProgress{Goal: d("500"), Current: decimal.Zero, Percentage: decimal.Zero, Remaining: d("500")},
		},
		{
			name:  "partial",
			goal:  goal("2000"),
			stats: MonthlyStats{TotalPnL: d("500")},
			want:  GoalProgress{Goal: d("2000"), Current: d("500"), Percentage: d("25"), Remaining: d("1500")},
		},
		{
			name:  "exceeded",
			goal:  goal("1000"),
			stats: MonthlyStats{TotalPnL: d("1250")},
			want:  GoalProgress{Goal: d("1000"), Current: d("1250"), Percentage: d("100"), Remaining: d("-250")},
			over:  true,
		},
		{
			name:  "exactly met",
			goal:  goal("1000"),
			stats: MonthlyStats{TotalPnL: d("1000")},
			want:  GoalProgress{Goal: d("1000"), Current: d("1000"), Percentage: d("100"), Remaining: decimal.Zero},
			over:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ComputeGoalProgress(tc.goal, tc.stats)
			if !ok {
				t.Fatalf("expected progress")
			}
			if diff := cmp.Diff(tc.want, got, decimalEqual); diff != "" {
				t.Fatalf("progress mismatch (-want +got):\n%s", diff)
			}
			if got.OverGoal() != tc.over {
				t.Fatalf("expected OverGoal=%v", tc.over)
			}
			if got.RemainingToGoal().IsNegative() {
				t.Fatalf("floored remaining must not be negative")
			}
		})
	}
}

func TestComputeGoalProgressWithoutGoal(t *testing.T) {
	if _, ok := ComputeGoalProgress(nil, MonthlyStats{TotalPnL: d("10")}); ok {
		t.Fatalf("expected no progress without a goal")
	}
}

func TestBuildCumulativeSeriesAll(t *testing.T) {
	entries := append(novemberEntries(), entry("2025-10-31", "100", nil))
	got := BuildCumulativeSeries(entries, WindowAll)

	wantPoints := []SeriesPoint{
		{Date: "2025-10-31", DailyPnL: d("100"), CumulativePnL: d("100")},
		{Date: "2025-11-25", DailyPnL: d("329.73"), CumulativePnL: d("429.73")},
		{Date: "2025-11-26", DailyPnL: d("-299.31"), CumulativePnL: d("130.42")},
		{Date: "2025-11-27", DailyPnL: d("0"), CumulativePnL: d("130.42")},
		{Date: "2025-11-28", DailyPnL: d("-501.95"), CumulativePnL: d("-371.53")},
	}
	if diff := cmp.Diff(wantPoints, got.Points, decimalEqual); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}

	total := ComputeMonthlyStats(entries).TotalPnL
	if !got.Points[len(got.Points)-1].CumulativePnL.Equal(total) {
		t.Fatalf("last cumulative %s != total %s", got.Points[len(got.Points)-1].CumulativePnL, total)
	}
	if !got.Summary.TotalPnL.Equal(total) || !got.Summary.WindowPnL.Equal(total) {
		t.Fatalf("summary totals mismatch: %+v", got.Summary)
	}
	if !got.Summary.WinRate.Equal(d("40")) {
		t.Fatalf("expected 40%% win rate, got %s", got.Summary.WinRate)
	}
	if !got.Summary.BestDay.Equal(d("329.73")) || !got.Summary.WorstDay.Equal(d("-501.95")) {
		t.Fatalf("unexpected best/worst: %s/%s", got.Summary.BestDay, got.Summary.WorstDay)
	}
	if got.Summary.MedianDay != 0 {
		t.Fatalf("expected median 0, got %v", got.Summary.MedianDay)
	}
}

func TestBuildCumulativeSeriesSevenDays(t *testing.T) {
	entries := []core.Entry{
		entry("2025-11-05", "480", nil),
		entry("2025-10-29", "-75", nil),
		entry("2025-11-03", "250", nil),
	}
	got := BuildCumulativeSeries(entries, Window7D)

	wantPoints := []SeriesPoint{
		{Date: "2025-11-03", DailyPnL: d("250"), CumulativePnL: d("175")},
		{Date: "2025-11-05", DailyPnL: d("480"), CumulativePnL: d("655")},
	}
	if diff := cmp.Diff(wantPoints, got.Points, decimalEqual); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
	want := SeriesSummary{
		Days:       2,
		TotalPnL:   d("655"),
		WindowPnL:  d("730"),
		WinRate:    d("100"),
		BestDay:    d("480"),
		WorstDay:   d("250"),
		AverageDay: 365,
		MedianDay:  365,
		StdDev:     115,
	}
	if diff := cmp.Diff(want, got.Summary, decimalEqual); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCumulativeSeriesWindowStartIsInclusive(t *testing.T) {
	entries := []core.Entry{
		entry("2025-10-30", "10", nil),
		entry("2025-11-05", "20", nil),
	}
	got := BuildCumulativeSeries(entries, Window7D)
	if len(got.Points) != 2 || got.Points[0].Date != "2025-10-30" {
		t.Fatalf("expected window to start on 2025-10-30, got %+v", got.Points)
	}
}

func TestBuildCumulativeSeriesThirtyDaysAcrossYear(t *testing.T) {
	entries := []core.Entry{
		entry("2024-12-01", "5", nil),
		entry("2024-12-02", "-5", nil),
		entry("2024-12-31", "7", nil),
		entry("2025-01-29", "-3", nil),
	}
	got := BuildCumulativeSeries(entries, Window30D)
	if len(got.Points) != 2 || got.Points[0].Date != "2024-12-31" {
		t.Fatalf("unexpected window: %+v", got.Points)
	}
	if !got.Summary.WinRate.Equal(d("50")) {
		t.Fatalf("expected 50%% win rate, got %s", got.Summary.WinRate)
	}
}

func TestBuildCumulativeSeriesEmpty(t *testing.T) {
	for _, w := range Windows() {
		got := BuildCumulativeSeries(nil, w)
		if len(got.Points) != 0 {
			t.Fatalf("%s: expected no points", w)
		}
		want := SeriesSummary{TotalPnL: decimal.Zero, WindowPnL: decimal.Zero, WinRate: decimal.Zero, BestDay: decimal.Zero, WorstDay: decimal.Zero}
		if diff := cmp.Diff(want, got.Summary, decimalEqual); diff != "" {
			t.Fatalf("%s: summary mismatch (-want +got):\n%s", w, diff)
		}
	}
}

func TestBuildCumulativeSeriesMergesDuplicateDates(t *testing.T) {
	entries := []core.Entry{
		entry("2024-03-01", "10", nil),
		entry("2024-03-01", "-4", nil),
	}
	got := BuildCumulativeSeries(entries, WindowAll)
	if len(got.Points) != 1 || !got.Points[0].DailyPnL.Equal(d("6")) {
		t.Fatalf("expected one merged point, got %+v", got.Points)
	}
}

func TestSeriesStdDev(t *testing.T) {
	entries := []core.Entry{
		entry("2024-03-01", "2", nil),
		entry("2024-03-02", "4", nil),
		entry("2024-03-03", "4", nil),
		entry("2024-03-04", "4", nil),
		entry("2024-03-05", "5", nil),
		entry("2024-03-06", "5", nil),
		entry("2024-03-07", "7", nil),
		entry("2024-03-08", "9", nil),
	}
	got := BuildCumulativeSeries(entries, WindowAll)
	if math.Abs(got.Summary.StdDev-2) > 1e-9 {
		t.Fatalf("expected population stddev 2, got %v", got.Summary.StdDev)
	}
	if got.Summary.AverageDay != 5 {
		t.Fatalf("expected mean 5, got %v", got.Summary.AverageDay)
	}
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		in   string
		want Window
		err  error
	}{
		{"7d", Window7D, nil},
		{" 30D ", Window30D, nil},
		{"all", WindowAll, nil},
		{"", DefaultWindow, nil},
		{"90d", "", ErrUnknownWindow},
		{"week", "", ErrUnknownWindow},
	}
	for _, tc := range cases {
		got, err := ParseWindow(tc.in)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Fatalf("%q: expected (%q, %v), got (%q, %v)", tc.in, tc.want, tc.err, got, err)
		}
	}
}
