package aggregate

import (
	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

var hundred = decimal.NewFromInt(100)

// GoalProgress relates a month's total P&L to its goal.
//
// Remaining is signed: it goes negative once the goal has been exceeded.
type GoalProgress struct {
	Goal       decimal.Decimal
	Current    decimal.Decimal
	Percentage decimal.Decimal // clamped to [0, 100]
	Remaining  decimal.Decimal
}

// ComputeGoalProgress returns false when no goal is set. The goal must be
// strictly positive; core.ParseGoal guarantees that for stored goals.
func ComputeGoalProgress(goal *decimal.Decimal, stats MonthlyStats) (GoalProgress, bool) {
	if goal == nil {
		return GoalProgress{}, false
	}
	pct := core.Percent(stats.TotalPnL, *goal)
	if pct.IsNegative() {
		pct = decimal.Zero
	} else if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return GoalProgress{
		Goal:       *goal,
		Current:    stats.TotalPnL,
		Percentage: pct,
		Remaining:  goal.Sub(stats.TotalPnL),
	}, true
}

// OverGoal reports whether the month's total has passed the goal.
func (p GoalProgress) OverGoal() bool {
	return !p.Remaining.IsPositive()
}

// RemainingToGoal returns Remaining floored at zero, for callers that only
// display the distance still to cover.
func (p GoalProgress) RemainingToGoal() decimal.Decimal {
	if p.Remaining.IsNegative() {
		return decimal.Zero
	}
	return p.Remaining
}
