package google

import (
	"fmt"
	"strconv"
	"strings"

	"pnljournal/internal/core"
)

// findRow returns the 1-based sheet row holding (user, date), or 0.
func findRow(values [][]any, userID, dateKey string) int {
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) < 2 {
			continue
		}
		if cols[0] == dateKey && cols[1] == userID {
			return i + 1
		}
	}
	return 0
}

// parseJournalRows converts a values matrix into entries. Header, cleared
// and malformed rows are skipped.
func parseJournalRows(values [][]any) []core.Entry {
	var out []core.Entry
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 3 || cols[1] == "" {
			continue
		}
		date, err := core.ParseDateKey(cols[0])
		if err != nil {
			continue
		}
		pnl, err := core.ParsePnL(cols[2])
		if err != nil {
			continue
		}
		e := core.Entry{UserID: cols[1], Date: date, PnL: pnl}
		if t := safeGet(cols, 3); t != "" {
			if n, err := strconv.Atoi(t); err == nil && n >= 0 {
				e.Trades = &n
			}
		}
		if v, err := strconv.ParseInt(safeGet(cols, 5), 10, 64); err == nil {
			e.Version = v
		}
		out = append(out, e)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
