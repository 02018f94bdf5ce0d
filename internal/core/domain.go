package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical key format for calendar days.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// YearMonth identifies a calendar month. Month is 1-12.
	YearMonth struct {
		Year  int
		Month int
	}

	// Entry is the realized result of one trading day for one user.
	Entry struct {
		UserID string
		Date   Date
		PnL    decimal.Decimal
		Trades *int // nil means "not recorded", distinct from zero
		// Version increments on every upsert; used to drop stale sync messages.
		Version   int64
		UpdatedAt time.Time
	}

	MonthlyGoal struct {
		UserID string
		Month  YearMonth
		Amount decimal.Decimal
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidPnL    = errors.New("invalid pnl")
	ErrInvalidTrades = errors.New("invalid trades")
	ErrInvalidGoal   = errors.New("invalid goal")
	ErrEmptyUser     = errors.New("empty user id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDateKey parses a YYYY-MM-DD key.
func ParseDateKey(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Key returns the YYYY-MM-DD form. Keys sort in chronological order.
func (d Date) Key() string {
	return d.Format(DateLayout)
}

func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

// YearMonth returns the month this date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (ym YearMonth) Validate() error {
	if ym.Month < 1 || ym.Month > 12 {
		return ErrInvalidMonth
	}
	if ym.Year < 1 || ym.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

// FirstDay returns the first calendar day of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// LastDay returns the last calendar day of the month.
func (ym YearMonth) LastDay() Date {
	return ym.FirstDay().addMonths(1).AddDays(-1)
}

// DaysIn returns the number of days in the month.
func (ym YearMonth) DaysIn() int {
	return ym.LastDay().Day()
}

// Contains reports whether d falls inside the month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Year() == ym.Year && d.Month() == ym.Month
}

// Next returns the following month.
func (ym YearMonth) Next() YearMonth {
	return ym.FirstDay().addMonths(1).YearMonth()
}

// Prev returns the preceding month.
func (ym YearMonth) Prev() YearMonth {
	return ym.FirstDay().addMonths(-1).YearMonth()
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

func (d Date) addMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Trades != nil && *e.Trades < 0 {
		return ErrInvalidTrades
	}
	return nil
}

// TradeCount returns the recorded trade count, or zero when not recorded.
func (e Entry) TradeCount() int {
	if e.Trades == nil {
		return 0
	}
	return *e.Trades
}

func (g MonthlyGoal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUser
	}
	if err := g.Month.Validate(); err != nil {
		return err
	}
	if !g.Amount.IsPositive() {
		return ErrInvalidGoal
	}
	return nil
}
