package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pnljournal/internal/core"
	"pnljournal/internal/store"
)

const eventColumns = `id, user_id, title, description, start_date, end_date, type, all_day, color, created_at, updated_at`

func scanEvent(sc interface{ Scan(...any) error }) (core.CalendarEvent, error) {
	var (
		e                core.CalendarEvent
		id, start, typ   string
		end              sql.NullString
		created, updated int64
	)
	if err := sc.Scan(&id, &e.UserID, &e.Title, &e.Description, &start, &end, &typ, &e.AllDay, &e.Color, &created, &updated); err != nil {
		return core.CalendarEvent{}, err
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return core.CalendarEvent{}, fmt.Errorf("parse event id: %w", err)
	}
	if e.StartDate, err = core.ParseDateKey(start); err != nil {
		return core.CalendarEvent{}, err
	}
	if end.Valid {
		d, err := core.ParseDateKey(end.String)
		if err != nil {
			return core.CalendarEvent{}, err
		}
		e.EndDate = &d
	}
	e.Type = core.EventType(typ)
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return e, nil
}

func endDateArg(e core.CalendarEvent) sql.NullString {
	if e.EndDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: e.EndDate.Key(), Valid: true}
}

// CreateEvent implements store.EventStore
func (r *SQLiteRepository) CreateEvent(ctx context.Context, e core.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calendar_events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.UserID, e.Title, e.Description, e.StartDate.Key(), endDateArg(e),
		string(e.Type), e.AllDay, e.Color, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpdateEvent implements store.EventStore
func (r *SQLiteRepository) UpdateEvent(ctx context.Context, e core.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE calendar_events SET
		     title = ?, description = ?, start_date = ?, end_date = ?,
		     type = ?, all_day = ?, color = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.Title, e.Description, e.StartDate.Key(), endDateArg(e),
		string(e.Type), e.AllDay, e.Color, e.UpdatedAt.UnixMilli(),
		e.ID.String(), e.UserID)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}
	return requireAffected(res)
}

// DeleteEvent implements store.EventStore
func (r *SQLiteRepository) DeleteEvent(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return requireAffected(res)
}

// GetEvent implements store.EventStore
func (r *SQLiteRepository) GetEvent(ctx context.Context, userID string, id uuid.UUID) (core.CalendarEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE id = ? AND user_id = ?`, id.String(), userID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CalendarEvent{}, store.ErrNotFound
	}
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// ListEventsInRange implements store.EventStore
func (r *SQLiteRepository) ListEventsInRange(ctx context.Context, userID string, from, to core.Date) ([]core.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM calendar_events
		 WHERE user_id = ? AND start_date <= ? AND COALESCE(end_date, start_date) >= ?
		 ORDER BY start_date ASC, created_at ASC`,
		userID, to.Key(), from.Key())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []core.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
