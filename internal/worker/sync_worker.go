package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pnljournal/internal/amqp"
	"pnljournal/internal/core"
	"pnljournal/internal/sheets"
	"pnljournal/internal/store"
)

// SyncWorker mirrors journal entries from SQLite to a spreadsheet.
type SyncWorker struct {
	queue     store.SyncQueue
	mirror    sheets.EntryMirror
	batchSize int
}

var _ amqp.Handler = (*SyncWorker)(nil)

func NewSyncWorker(queue store.SyncQueue, mirror sheets.EntryMirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		queue:     queue,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single entry sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	date, err := core.ParseDateKey(msg.Date)
	if err != nil {
		// Unprocessable; retrying will not help
		slog.ErrorContext(ctx, "Dropping sync message with bad date", "date", msg.Date, "error", err)
		return nil
	}

	entry, err := w.queue.GetEntry(ctx, msg.UserID, date)
	if errors.Is(err, store.ErrNotFound) {
		slog.InfoContext(ctx, "Entry deleted before sync, skipping",
			"user_id", msg.UserID,
			"date", msg.Date)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if entry.Version > msg.Version {
		slog.DebugContext(ctx, "Skipping stale sync message",
			"user_id", msg.UserID,
			"date", msg.Date,
			"message_version", msg.Version,
			"stored_version", entry.Version)
		return nil
	}

	return w.syncEntry(ctx, entry)
}

// HandleDeleteMessage processes a single entry delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.EntryDeleteMessage) error {
	date, err := core.ParseDateKey(msg.Date)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping delete message with bad date", "date", msg.Date, "error", err)
		return nil
	}

	// The day may have been re-entered after the delete; its sync message wins.
	if _, err := w.queue.GetEntry(ctx, msg.UserID, date); err == nil {
		slog.InfoContext(ctx, "Entry re-created after delete, skipping mirror delete",
			"user_id", msg.UserID,
			"date", msg.Date)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if err := w.mirror.DeleteEntry(ctx, msg.UserID, date); err != nil {
		return fmt.Errorf("delete mirrored entry: %w", err)
	}

	slog.InfoContext(ctx, "Deleted mirrored entry",
		"user_id", msg.UserID,
		"date", msg.Date,
		"timestamp", msg.Timestamp)
	return nil
}

// ProcessPendingEntries syncs entries that have not been mirrored yet.
// This is the backstop for lost AMQP messages. It returns the number synced.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck syncs a larger batch of pending entries at worker start,
// to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.queue.ListPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	synced := 0
	for _, e := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.syncEntry(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to sync entry",
				"user_id", e.UserID,
				"date", e.Date.Key(),
				"error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *SyncWorker) syncEntry(ctx context.Context, e core.Entry) error {
	ref, err := w.mirror.UpsertEntry(ctx, e)
	if err != nil {
		if markErr := w.queue.MarkSyncError(ctx, e.UserID, e.Date, e.Version, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "date", e.Date.Key(), "error", markErr)
		}
		return fmt.Errorf("mirror entry: %w", err)
	}

	if err := w.queue.MarkSynced(ctx, e.UserID, e.Date, e.Version); err != nil {
		// The mirror write succeeded; the next sweep will rewrite the same row.
		slog.ErrorContext(ctx, "Failed to mark as synced", "date", e.Date.Key(), "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced entry",
		"user_id", e.UserID,
		"date", e.Date.Key(),
		"version", e.Version,
		"sheets_ref", ref)
	return nil
}
