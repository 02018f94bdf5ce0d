package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"pnljournal/internal/cache"
	"pnljournal/internal/core"
	"pnljournal/internal/store"
)

// Publisher announces entry changes to the sync worker. *amqp.Client
// implements it.
type Publisher interface {
	PublishEntrySync(ctx context.Context, userID, date string, version int64) error
	PublishEntryDelete(ctx context.Context, userID, date string) error
}

// JournalService orchestrates journal operations across the store, the
// snapshot cache and AMQP.
type JournalService struct {
	store     store.Journal
	publisher Publisher
	entries   cache.Cache[[]core.Entry]
	gens      cache.Generations // per user
}

// NewJournalService wires the service. publisher and entryCache may be nil.
func NewJournalService(st store.Journal, publisher Publisher, entryCache cache.Cache[[]core.Entry]) *JournalService {
	return &JournalService{
		store:     st,
		publisher: publisher,
		entries:   entryCache,
	}
}

func monthKey(userID string, ym core.YearMonth) string {
	return userID + "|" + ym.String()
}

func allKey(userID string) string {
	return userID + "|all"
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrEmptyUser
	}
	return nil
}

// invalidate drops every cached snapshot of the user.
func (s *JournalService) invalidate(userID string) {
	if s.entries == nil {
		return
	}
	s.gens.Invalidate(userID, func() { s.entries.DeletePrefix(userID + "|") })
}

// GetEntry returns the stored entry for the day, or store.ErrNotFound.
func (s *JournalService) GetEntry(ctx context.Context, userID string, date core.Date) (core.Entry, error) {
	if err := checkUser(userID); err != nil {
		return core.Entry{}, err
	}
	return s.store.GetEntry(ctx, userID, date)
}

// SaveEntry upserts the entry for (user, date), then publishes a sync message.
func (s *JournalService) SaveEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	saved, err := s.store.UpsertEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.invalidate(e.UserID)

	if err := s.publishSync(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"user_id", saved.UserID,
			"date", saved.Date.Key(),
			"error", err)
		// Don't fail the request; the pending-sync sweep picks it up
	}

	return saved, nil
}

// DeleteEntry removes the entry for the day, then publishes a delete message.
func (s *JournalService) DeleteEntry(ctx context.Context, userID string, date core.Date) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, userID, date); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.invalidate(userID)

	if s.publisher != nil {
		if err := s.publisher.PublishEntryDelete(ctx, userID, date.Key()); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message",
				"user_id", userID,
				"date", date.Key(),
				"error", err)
		}
	}
	return nil
}

// ImportEntries validates every entry, then upserts them for the user.
// It returns the number stored; nothing is written if any entry is invalid.
func (s *JournalService) ImportEntries(ctx context.Context, userID string, entries []core.Entry) (int, error) {
	if err := checkUser(userID); err != nil {
		return 0, err
	}
	for i := range entries {
		entries[i].UserID = userID
		if err := entries[i].Validate(); err != nil {
			return 0, fmt.Errorf("entry %d (%s): %w", i+1, entries[i].Date.Key(), err)
		}
	}

	stored := 0
	for _, e := range entries {
		if _, err := s.SaveEntry(ctx, e); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// ExportEntries returns every entry of the user in ascending date order.
func (s *JournalService) ExportEntries(ctx context.Context, userID string) ([]core.Entry, error) {
	return s.allEntries(ctx, userID)
}

func (s *JournalService) monthEntries(ctx context.Context, userID string, ym core.YearMonth) ([]core.Entry, error) {
	return cache.Load(s.entries, &s.gens, userID, monthKey(userID, ym), func() ([]core.Entry, error) {
		entries, err := s.store.ListMonth(ctx, userID, ym)
		if err != nil {
			return nil, fmt.Errorf("list month entries: %w", err)
		}
		return entries, nil
	})
}

func (s *JournalService) allEntries(ctx context.Context, userID string) ([]core.Entry, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	return cache.Load(s.entries, &s.gens, userID, allKey(userID), func() ([]core.Entry, error) {
		entries, err := s.store.ListAll(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		return entries, nil
	})
}

func (s *JournalService) publishSync(ctx context.Context, e core.Entry) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishEntrySync(ctx, e.UserID, e.Date.Key(), e.Version)
}

// Ping checks the store when it supports it.
func (s *JournalService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes storage and AMQP connections when they hold resources.
func (s *JournalService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close journal service: %v", errs)
	}
	return nil
}
