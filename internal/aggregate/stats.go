// Package aggregate derives monthly statistics, goal progress and the
// cumulative P&L series from a snapshot of entries.
//
// Every function here is pure: callers pass the snapshot in, nothing is
// retained, and inputs are never mutated.
package aggregate

import (
	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

// MonthlyStats summarizes one month of entries. It is always recomputed from
// the entries and never persisted.
type MonthlyStats struct {
	TotalPnL    decimal.Decimal
	WinningDays int
	LosingDays  int
	TradingDays int
	TotalTrades int
}

// ComputeMonthlyStats sums P&L and trades and counts winning and losing days.
// Days with exactly zero P&L count in neither bucket.
func ComputeMonthlyStats(entries []core.Entry) MonthlyStats {
	s := MonthlyStats{TotalPnL: decimal.Zero}
	for _, e := range entries {
		s.TotalPnL = s.TotalPnL.Add(e.PnL)
		switch e.PnL.Sign() {
		case 1:
			s.WinningDays++
		case -1:
			s.LosingDays++
		}
		s.TotalTrades += e.TradeCount()
	}
	s.TradingDays = s.WinningDays + s.LosingDays
	return s
}

// WinRate returns winning days over trading days as a percentage, or zero
// when there were no trading days.
func (s MonthlyStats) WinRate() decimal.Decimal {
	if s.TradingDays == 0 {
		return decimal.Zero
	}
	return core.Percent(decimal.NewFromInt(int64(s.WinningDays)), decimal.NewFromInt(int64(s.TradingDays)))
}
