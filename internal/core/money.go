// Package core provides money parsing and handling utilities.
//
// This file contains the input boundary for P&L values, goal amounts and
// trade counts, and the display helpers used by templates and the CLI.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParsePnL parses a signed realized P&L amount.
//
// It accepts a dot decimal separator with optional thousands commas
// (1,234.50), or a comma decimal separator with one or two digits (12,34).
// A comma fitting neither form is rejected. An optional leading sign and
// an optional "$" after the sign are allowed. Values are rounded half-up to
// cents. Empty or non-numeric input returns ErrInvalidPnL.
//
// Examples:
//
//	ParsePnL("125.50")  -> 125.5
//	ParsePnL("-$80")    -> -80
//	ParsePnL("-2,500")  -> -2500
//	ParsePnL("0,75")    -> 0.75
func ParsePnL(s string) (decimal.Decimal, error) {
	d, err := parseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPnL, s)
	}
	return d, nil
}

// ParseGoal parses a monthly goal amount. Goals must be strictly positive.
func ParseGoal(s string) (decimal.Decimal, error) {
	d, err := parseAmount(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidGoal, s)
	}
	return d, nil
}

// ParseTrades parses an optional trade count. Blank input means "not
// recorded" and yields nil.
func ParseTrades(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTrades, s)
	}
	return &n, nil
}

var (
	// 1,234 or 12,345,678.90; a leading zero group is not grouping.
	groupedAmount = regexp.MustCompile(`^[1-9]\d{0,2}(,\d{3})+(\.\d+)?$`)
	// 12,5 or 0,75
	decimalComma = regexp.MustCompile(`^\d+,\d{1,2}$`)
)

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, strconv.ErrSyntax
	}
	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign, s = s[:1], s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	switch {
	case !strings.Contains(s, ","):
	case groupedAmount.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case decimalComma.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	default:
		return decimal.Zero, strconv.ErrSyntax
	}
	if s == "" || strings.ContainsAny(s, "eE+-") {
		return decimal.Zero, strconv.ErrSyntax
	}
	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// FormatSignedUSD renders an amount as "+$1,234.50" or "-$80.00".
// Zero renders as "$0.00".
func FormatSignedUSD(d decimal.Decimal) string {
	sign := ""
	switch d.Sign() {
	case 1:
		sign = "+"
	case -1:
		sign = "-"
	}
	return sign + "$" + groupThousands(d.Abs().StringFixed(2))
}

// FormatUSD renders an unsigned amount as "$1,234.50".
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + groupThousands(d.Abs().StringFixed(2))
	}
	return "$" + groupThousands(d.StringFixed(2))
}

// FormatPercent renders a percentage with one decimal place.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// Percent returns part/whole*100. whole must be non-zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return part.Div(whole).Mul(hundred)
}

func groupThousands(fixed string) string {
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return fixed
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + "." + frac
}
