package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pnljournal/internal/core"
	"pnljournal/internal/store"
)

// Store keeps journals in process memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]map[string]core.Entry // user -> date key -> entry
	goals   map[string]map[core.YearMonth]decimal.Decimal
	events  map[string]map[uuid.UUID]core.CalendarEvent
	now     func() time.Time
}

var _ store.Journal = (*Store)(nil)

func New() *Store {
	return &Store{
		entries: map[string]map[string]core.Entry{},
		goals:   map[string]map[core.YearMonth]decimal.Decimal{},
		events:  map[string]map[uuid.UUID]core.CalendarEvent{},
		now:     time.Now,
	}
}

func (s *Store) ListMonth(_ context.Context, userID string, month core.YearMonth) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Entry
	for _, e := range s.entries[userID] {
		if month.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) ListAll(_ context.Context, userID string) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Entry, 0, len(s.entries[userID]))
	for _, e := range s.entries[userID] {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, userID string, date core.Date) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[userID][date.Key()]
	if !ok {
		return core.Entry{}, store.ErrNotFound
	}
	return e, nil
}

// UpsertEntry stores the entry and bumps its version.
func (s *Store) UpsertEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate, ok := s.entries[e.UserID]
	if !ok {
		byDate = map[string]core.Entry{}
		s.entries[e.UserID] = byDate
	}
	e.Version = byDate[e.Date.Key()].Version + 1
	e.UpdatedAt = s.now().UTC()
	if e.Trades != nil {
		n := *e.Trades
		e.Trades = &n
	}
	byDate[e.Date.Key()] = e
	return e, nil
}

func (s *Store) DeleteEntry(_ context.Context, userID string, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[userID][date.Key()]; !ok {
		return store.ErrNotFound
	}
	delete(s.entries[userID], date.Key())
	return nil
}

func (s *Store) GetGoal(_ context.Context, userID string, month core.YearMonth) (*decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[userID][month]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (s *Store) UpsertGoal(_ context.Context, g core.MonthlyGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goals[g.UserID] == nil {
		s.goals[g.UserID] = map[core.YearMonth]decimal.Decimal{}
	}
	s.goals[g.UserID][g.Month] = g.Amount
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, userID string, month core.YearMonth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[userID][month]; !ok {
		return store.ErrNotFound
	}
	delete(s.goals[userID], month)
	return nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.MonthlyGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.MonthlyGoal, 0, len(s.goals[userID]))
	for m, amt := range s.goals[userID] {
		out = append(out, core.MonthlyGoal{UserID: userID, Month: m, Amount: amt})
	}
	slices.SortFunc(out, func(a, b core.MonthlyGoal) int {
		return strings.Compare(b.Month.String(), a.Month.String())
	})
	return out, nil
}

func (s *Store) CreateEvent(_ context.Context, e core.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events[e.UserID] == nil {
		s.events[e.UserID] = map[uuid.UUID]core.CalendarEvent{}
	}
	if _, exists := s.events[e.UserID][e.ID]; exists {
		return fmt.Errorf("create event %s: already exists", e.ID)
	}
	s.events[e.UserID][e.ID] = e
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, e core.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.UserID][e.ID]; !ok {
		return store.ErrNotFound
	}
	s.events[e.UserID][e.ID] = e
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, userID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[userID][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.events[userID], id)
	return nil
}

func (s *Store) GetEvent(_ context.Context, userID string, id uuid.UUID) (core.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[userID][id]
	if !ok {
		return core.CalendarEvent{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEventsInRange(_ context.Context, userID string, from, to core.Date) ([]core.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.CalendarEvent
	for _, e := range s.events[userID] {
		if e.Overlaps(from, to) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b core.CalendarEvent) int {
		if c := strings.Compare(a.StartDate.Key(), b.StartDate.Key()); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func sortEntries(entries []core.Entry) {
	slices.SortFunc(entries, func(a, b core.Entry) int {
		return strings.Compare(a.Date.Key(), b.Date.Key())
	})
}

// seedFile is the on-disk layout of a memory seed.
type seedFile struct {
	Users map[string]seedUser `yaml:"users"`
}

type seedUser struct {
	Entries []struct {
		Date   string `yaml:"date"`
		PnL    string `yaml:"pnl"`
		Trades *int   `yaml:"trades"`
	} `yaml:"entries"`
	Goals []struct {
		Month  string `yaml:"month"` // YYYY-MM
		Amount string `yaml:"amount"`
	} `yaml:"goals"`
	Events []struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Start       string `yaml:"start"`
		End         string `yaml:"end"`
		Type        string `yaml:"type"`
		Color       string `yaml:"color"`
	} `yaml:"events"`
}

// NewFromFile builds a store seeded from a YAML file. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	if err := s.Seed(data); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return s, nil
}

// Seed loads YAML seed data into the store.
func (s *Store) Seed(data []byte) error {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	ctx := context.Background()
	for user, u := range f.Users {
		for _, raw := range u.Entries {
			date, err := core.ParseDateKey(raw.Date)
			if err != nil {
				return err
			}
			pnl, err := core.ParsePnL(raw.PnL)
			if err != nil {
				return err
			}
			if _, err := s.UpsertEntry(ctx, core.Entry{UserID: user, Date: date, PnL: pnl, Trades: raw.Trades}); err != nil {
				return fmt.Errorf("entry %s: %w", raw.Date, err)
			}
		}
		for _, raw := range u.Goals {
			first, err := core.ParseDateKey(raw.Month + "-01")
			if err != nil {
				return err
			}
			amt, err := core.ParseGoal(raw.Amount)
			if err != nil {
				return err
			}
			if err := s.UpsertGoal(ctx, core.MonthlyGoal{UserID: user, Month: first.YearMonth(), Amount: amt}); err != nil {
				return err
			}
		}
		for _, raw := range u.Events {
			start, err := core.ParseDateKey(raw.Start)
			if err != nil {
				return err
			}
			typ, err := core.ParseEventType(raw.Type)
			if err != nil {
				return err
			}
			ev := core.CalendarEvent{
				ID:          uuid.New(),
				UserID:      user,
				Title:       raw.Title,
				Description: raw.Description,
				StartDate:   start,
				Type:        typ,
				AllDay:      true,
				Color:       raw.Color,
				CreatedAt:   s.now().UTC(),
			}
			if raw.End != "" {
				end, err := core.ParseDateKey(raw.End)
				if err != nil {
					return err
				}
				ev.EndDate = &end
			}
			ev.UpdatedAt = ev.CreatedAt
			ev.Normalize()
			if err := s.CreateEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}
