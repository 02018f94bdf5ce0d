package core

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EventNews      EventType = "news"
	EventBreak     EventType = "break"
	EventMilestone EventType = "milestone"
	EventReminder  EventType = "reminder"
	EventMarket    EventType = "market"
	EventCustom    EventType = "custom"
)

const maxEventTitle = 120

type (
	EventType string

	// CalendarEvent annotates one day or a range of days on a user's calendar.
	CalendarEvent struct {
		ID          uuid.UUID
		UserID      string
		Title       string
		Description string
		StartDate   Date
		EndDate     *Date // nil for single-day events
		Type        EventType
		AllDay      bool
		Color       string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrEmptyTitle       = errors.New("empty event title")
	ErrTitleTooLong     = errors.New("event title too long (max 120 characters)")
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidDateRange = errors.New("end date before start date")
	ErrInvalidColor     = errors.New("invalid color")
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var defaultEventColors = map[EventType]string{
	EventNews:      "#3B82F6",
	EventBreak:     "#F59E0B",
	EventMilestone: "#10B981",
	EventReminder:  "#8B5CF6",
	EventMarket:    "#EF4444",
	EventCustom:    "#6B7280",
}

// EventTypes lists the known event types in display order.
func EventTypes() []EventType {
	return []EventType{EventNews, EventBreak, EventMilestone, EventReminder, EventMarket, EventCustom}
}

// ParseEventType returns the event type named by s.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := defaultEventColors[t]; !ok {
		return "", ErrInvalidEventType
	}
	return t, nil
}

// DefaultColor returns the palette color for the type.
func (t EventType) DefaultColor() string {
	if c, ok := defaultEventColors[t]; ok {
		return c
	}
	return defaultEventColors[EventCustom]
}

// Normalize trims the title and fills in the type's default color.
func (e *CalendarEvent) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	if e.Color == "" {
		e.Color = e.Type.DefaultColor()
	}
	if e.EndDate != nil && e.EndDate.Equal(e.StartDate.Time) {
		e.EndDate = nil
	}
}

func (e CalendarEvent) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxEventTitle {
		return ErrTitleTooLong
	}
	if _, ok := defaultEventColors[e.Type]; !ok {
		return ErrInvalidEventType
	}
	if err := e.StartDate.Validate(); err != nil {
		return err
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return ErrInvalidDateRange
	}
	if e.Color != "" && !hexColor.MatchString(e.Color) {
		return ErrInvalidColor
	}
	return nil
}

// LastDate returns EndDate, or StartDate for single-day events.
func (e CalendarEvent) LastDate() Date {
	if e.EndDate == nil {
		return e.StartDate
	}
	return *e.EndDate
}

// Covers reports whether the event spans d.
func (e CalendarEvent) Covers(d Date) bool {
	return !d.Before(e.StartDate) && !d.After(e.LastDate())
}

// Overlaps reports whether the event intersects [from, to].
func (e CalendarEvent) Overlaps(from, to Date) bool {
	return !e.StartDate.After(to) && !e.LastDate().Before(from)
}
