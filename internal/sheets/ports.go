package sheets

import (
	"context"

	"pnljournal/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryMirror keeps a spreadsheet copy of journal entries, one row per
	// (user, date).
	EntryMirror interface {
		UpsertEntry(ctx context.Context, e core.Entry) (rowRef string, err error)
		// DeleteEntry removes the row if present. Missing rows are not an error.
		DeleteEntry(ctx context.Context, userID string, date core.Date) error
	}

	// EntryReader reads back what a mirror holds for one year, all users.
	EntryReader interface {
		ListEntries(ctx context.Context, year int) ([]core.Entry, error)
	}
)
