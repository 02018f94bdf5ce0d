// Package csvio reads and writes journal entries as date,pnl,trades CSV.
package csvio

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"pnljournal/internal/core"
)

// EntryRow is one CSV line. Trades is blank when not recorded.
type EntryRow struct {
	Date   string `csv:"date"`
	PnL    string `csv:"pnl"`
	Trades string `csv:"trades"`
}

func toRow(e core.Entry) EntryRow {
	row := EntryRow{
		Date: e.Date.Key(),
		PnL:  e.PnL.StringFixed(2),
	}
	if e.Trades != nil {
		row.Trades = strconv.Itoa(*e.Trades)
	}
	return row
}

// WriteEntries writes a header and one row per entry, in the given order.
func WriteEntries(w io.Writer, entries []core.Entry) error {
	rows := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, toRow(e))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write entries csv: %w", err)
	}
	return nil
}

// ReadEntries parses CSV rows into entries for userID. Line numbers in
// errors count the header as line 1.
func ReadEntries(r io.Reader, userID string) ([]core.Entry, error) {
	var rows []EntryRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read entries csv: %w", err)
	}

	entries := make([]core.Entry, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		date, err := core.ParseDateKey(row.Date)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pnl, err := core.ParsePnL(row.PnL)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades, err := core.ParseTrades(row.Trades)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, core.Entry{UserID: userID, Date: date, PnL: pnl, Trades: trades})
	}
	return entries, nil
}
