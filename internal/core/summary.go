package core

import "github.com/shopspring/decimal"

// Outcome classifies a calendar day for display.
type Outcome string

const (
	OutcomeWin   Outcome = "win"
	OutcomeLoss  Outcome = "loss"
	OutcomeFlat  Outcome = "flat" // entry recorded with exactly zero P&L
	OutcomeEmpty Outcome = "empty"
)

// OutcomeOf returns the outcome for a recorded P&L value.
func OutcomeOf(pnl decimal.Decimal) Outcome {
	switch pnl.Sign() {
	case 1:
		return OutcomeWin
	case -1:
		return OutcomeLoss
	default:
		return OutcomeFlat
	}
}
