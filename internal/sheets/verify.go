package sheets

import (
	"slices"

	"pnljournal/internal/core"
)

// Mismatch kinds reported by Compare.
const (
	MismatchMissing = "missing" // in the journal, not mirrored
	MismatchStale   = "stale"   // mirrored with a different pnl or trade count
	MismatchExtra   = "extra"   // mirrored, no longer in the journal
)

type Mismatch struct {
	Kind     string
	Date     core.Date
	Journal  *core.Entry
	Mirrored *core.Entry
}

// Compare matches journal entries against mirrored rows by date for one user.
// Mirrored rows of other users are ignored. Versions and timestamps are not
// compared since the mirror may lag a version without differing in content.
func Compare(userID string, journal, mirrored []core.Entry) []Mismatch {
	rows := make(map[string]core.Entry, len(mirrored))
	for _, m := range mirrored {
		if m.UserID == userID {
			rows[m.Date.Key()] = m
		}
	}

	var out []Mismatch
	for _, e := range journal {
		e := e
		m, ok := rows[e.Date.Key()]
		delete(rows, e.Date.Key())
		switch {
		case !ok:
			out = append(out, Mismatch{Kind: MismatchMissing, Date: e.Date, Journal: &e})
		case !sameContent(e, m):
			out = append(out, Mismatch{Kind: MismatchStale, Date: e.Date, Journal: &e, Mirrored: &m})
		}
	}
	for _, m := range rows {
		m := m
		out = append(out, Mismatch{Kind: MismatchExtra, Date: m.Date, Mirrored: &m})
	}

	slices.SortFunc(out, func(a, b Mismatch) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return 0
	})
	return out
}

func sameContent(a, b core.Entry) bool {
	if !a.PnL.Equal(b.PnL) {
		return false
	}
	if a.Trades == nil || b.Trades == nil {
		return a.Trades == nil && b.Trades == nil
	}
	return *a.Trades == *b.Trades
}
