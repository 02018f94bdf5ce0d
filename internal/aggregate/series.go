package aggregate

import (
	"slices"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

// SeriesPoint is one day of the cumulative P&L series.
type SeriesPoint struct {
	Date          string // YYYY-MM-DD
	DailyPnL      decimal.Decimal
	CumulativePnL decimal.Decimal
}

// SeriesSummary describes the points inside a window.
//
// TotalPnL is the all-time running total at the window's last point, which is
// what a chart header shows; WindowPnL is the sum of daily values inside the
// window only.
type SeriesSummary struct {
	Days       int
	TotalPnL   decimal.Decimal
	WindowPnL  decimal.Decimal
	WinRate    decimal.Decimal
	BestDay    decimal.Decimal
	WorstDay   decimal.Decimal
	AverageDay float64
	MedianDay  float64
	StdDev     float64
}

type Series struct {
	Window  Window
	Points  []SeriesPoint
	Summary SeriesSummary
}

// BuildCumulativeSeries sorts entries by date key, accumulates a running total
// and keeps the points inside window.
//
// For N-day windows the end is the most recent date present in the data, not
// the wall clock, and the start is end minus N-1 days. Points keep their
// all-time cumulative values after filtering.
func BuildCumulativeSeries(entries []core.Entry, window Window) Series {
	all := cumulate(entries)
	points := all
	if days := window.Days(); days > 0 && len(all) > 0 {
		points = trimToWindow(all, days)
	}
	return Series{
		Window:  window,
		Points:  points,
		Summary: summarize(points),
	}
}

func cumulate(entries []core.Entry) []SeriesPoint {
	daily := make(map[string]decimal.Decimal, len(entries))
	for _, e := range entries {
		key := e.Date.Key()
		daily[key] = daily[key].Add(e.PnL)
	}
	keys := make([]string, 0, len(daily))
	for k := range daily {
		keys = append(keys, k)
	}
	// ISO keys sort chronologically.
	slices.SortFunc(keys, strings.Compare)

	points := make([]SeriesPoint, 0, len(keys))
	running := decimal.Zero
	for _, k := range keys {
		running = running.Add(daily[k])
		points = append(points, SeriesPoint{Date: k, DailyPnL: daily[k], CumulativePnL: running})
	}
	return points
}

func trimToWindow(points []SeriesPoint, days int) []SeriesPoint {
	end, err := core.ParseDateKey(points[len(points)-1].Date)
	if err != nil {
		return points
	}
	start := end.AddDays(-(days - 1)).Key()
	i, _ := slices.BinarySearchFunc(points, start, func(p SeriesPoint, k string) int {
		return strings.Compare(p.Date, k)
	})
	return points[i:]
}

func summarize(points []SeriesPoint) SeriesSummary {
	sum := SeriesSummary{
		TotalPnL:  decimal.Zero,
		WindowPnL: decimal.Zero,
		WinRate:   decimal.Zero,
		BestDay:   decimal.Zero,
		WorstDay:  decimal.Zero,
	}
	if len(points) == 0 {
		return sum
	}

	wins := 0
	values := make([]float64, 0, len(points))
	sum.BestDay = points[0].DailyPnL
	sum.WorstDay = points[0].DailyPnL
	for _, p := range points {
		sum.WindowPnL = sum.WindowPnL.Add(p.DailyPnL)
		if p.DailyPnL.IsPositive() {
			wins++
		}
		if p.DailyPnL.GreaterThan(sum.BestDay) {
			sum.BestDay = p.DailyPnL
		}
		if p.DailyPnL.LessThan(sum.WorstDay) {
			sum.WorstDay = p.DailyPnL
		}
		values = append(values, p.DailyPnL.InexactFloat64())
	}
	sum.Days = len(points)
	sum.TotalPnL = points[len(points)-1].CumulativePnL
	sum.WinRate = core.Percent(decimal.NewFromInt(int64(wins)), decimal.NewFromInt(int64(len(points))))

	// The inputs are non-empty, so these only fail on NaN which decimals cannot hold.
	sum.AverageDay, _ = stats.Mean(values)
	sum.MedianDay, _ = stats.Median(values)
	sum.StdDev, _ = stats.StandardDeviationPopulation(values)
	return sum
}
