package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pnljournal/internal/core"
)

// EventPatch holds the fields of an event update. Nil fields are left as is.
type EventPatch struct {
	Title        *string
	Description  *string
	StartDate    *core.Date
	EndDate      *core.Date
	ClearEndDate bool
	Type         *core.EventType
	AllDay       *bool
	Color        *string
}

// CreateEvent assigns an ID and timestamps, then stores the event.
func (s *JournalService) CreateEvent(ctx context.Context, e core.CalendarEvent) (core.CalendarEvent, error) {
	now := time.Now().UTC()
	e.ID = uuid.New()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.CalendarEvent{}, err
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return core.CalendarEvent{}, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// UpdateEvent merges patch into the stored event.
func (s *JournalService) UpdateEvent(ctx context.Context, userID string, id uuid.UUID, patch EventPatch) (core.CalendarEvent, error) {
	if err := checkUser(userID); err != nil {
		return core.CalendarEvent{}, err
	}
	e, err := s.store.GetEvent(ctx, userID, id)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("get event: %w", err)
	}

	applyPatch(&e, patch)
	e.UpdatedAt = time.Now().UTC()
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.CalendarEvent{}, err
	}
	if err := s.store.UpdateEvent(ctx, e); err != nil {
		return core.CalendarEvent{}, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func applyPatch(e *core.CalendarEvent, p EventPatch) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		e.EndDate = nil
	} else if p.EndDate != nil {
		end := *p.EndDate
		e.EndDate = &end
	}
	if p.Type != nil && *p.Type != e.Type {
		// A color that was only the old type's default follows the new type.
		if e.Color == e.Type.DefaultColor() {
			e.Color = ""
		}
		e.Type = *p.Type
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
}

func (s *JournalService) DeleteEvent(ctx context.Context, userID string, id uuid.UUID) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, userID, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *JournalService) GetEvent(ctx context.Context, userID string, id uuid.UUID) (core.CalendarEvent, error) {
	if err := checkUser(userID); err != nil {
		return core.CalendarEvent{}, err
	}
	return s.store.GetEvent(ctx, userID, id)
}

// ListEventsByMonth returns events overlapping any day of the month.
func (s *JournalService) ListEventsByMonth(ctx context.Context, userID string, ym core.YearMonth) ([]core.CalendarEvent, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	if err := ym.Validate(); err != nil {
		return nil, err
	}
	events, err := s.store.ListEventsInRange(ctx, userID, ym.FirstDay(), ym.LastDay())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListEventsByDate returns events covering the day.
func (s *JournalService) ListEventsByDate(ctx context.Context, userID string, date core.Date) ([]core.CalendarEvent, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEventsInRange(ctx, userID, date, date)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
