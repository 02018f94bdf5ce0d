package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

var ErrNotFound = errors.New("not found")

// Ports implemented by the memory and SQLite stores.
type (
	EntryStore interface {
		// ListMonth returns the user's entries in the month, ascending by date.
		ListMonth(ctx context.Context, userID string, month core.YearMonth) ([]core.Entry, error)
		// ListAll returns every entry for the user, ascending by date.
		ListAll(ctx context.Context, userID string) ([]core.Entry, error)
		GetEntry(ctx context.Context, userID string, date core.Date) (core.Entry, error)
		// UpsertEntry inserts or replaces the entry for (user, date) and returns
		// it with its new version.
		UpsertEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		DeleteEntry(ctx context.Context, userID string, date core.Date) error
	}

	GoalStore interface {
		// GetGoal returns nil when no goal is set for the month.
		GetGoal(ctx context.Context, userID string, month core.YearMonth) (*decimal.Decimal, error)
		UpsertGoal(ctx context.Context, g core.MonthlyGoal) error
		DeleteGoal(ctx context.Context, userID string, month core.YearMonth) error
		// ListGoals returns the user's goals, newest month first.
		ListGoals(ctx context.Context, userID string) ([]core.MonthlyGoal, error)
	}

	EventStore interface {
		CreateEvent(ctx context.Context, e core.CalendarEvent) error
		UpdateEvent(ctx context.Context, e core.CalendarEvent) error
		DeleteEvent(ctx context.Context, userID string, id uuid.UUID) error
		GetEvent(ctx context.Context, userID string, id uuid.UUID) (core.CalendarEvent, error)
		// ListEventsInRange returns events overlapping [from, to], ordered by start date.
		ListEventsInRange(ctx context.Context, userID string, from, to core.Date) ([]core.CalendarEvent, error)
	}

	// Journal is everything the journal service needs from persistence.
	Journal interface {
		EntryStore
		GoalStore
		EventStore
	}

	// SyncQueue exposes entries that still need mirroring.
	SyncQueue interface {
		GetEntry(ctx context.Context, userID string, date core.Date) (core.Entry, error)
		ListPendingSync(ctx context.Context, limit int) ([]core.Entry, error)
		MarkSynced(ctx context.Context, userID string, date core.Date, version int64) error
		MarkSyncError(ctx context.Context, userID string, date core.Date, version int64, msg string) error
	}
)
