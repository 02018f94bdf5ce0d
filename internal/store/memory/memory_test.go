package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pnljournal/internal/core"
	"pnljournal/internal/store"
)

func TestUpsertEntryReplacesSameDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	date := core.NewDate(2025, 11, 25)

	first, err := s.UpsertEntry(ctx, core.Entry{UserID: "u1", Date: date, PnL: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Version)

	second, err := s.UpsertEntry(ctx, core.Entry{UserID: "u1", Date: date, PnL: decimal.NewFromInt(-40)})
	require.NoError(t, err)
	require.EqualValues(t, 2, second.Version)

	all, err := s.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].PnL.Equal(decimal.NewFromInt(-40)))
}

func TestListMonthIsScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, e := range []core.Entry{
		{UserID: "u1", Date: core.NewDate(2025, 11, 28), PnL: decimal.NewFromInt(1)},
		{UserID: "u1", Date: core.NewDate(2025, 11, 2), PnL: decimal.NewFromInt(2)},
		{UserID: "u1", Date: core.NewDate(2025, 12, 1), PnL: decimal.NewFromInt(3)},
		{UserID: "u2", Date: core.NewDate(2025, 11, 5), PnL: decimal.NewFromInt(4)},
	} {
		_, err := s.UpsertEntry(ctx, e)
		require.NoError(t, err)
	}

	got, err := s.ListMonth(ctx, "u1", core.YearMonth{Year: 2025, Month: 11})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "2025-11-02", got[0].Date.Key())
	require.Equal(t, "2025-11-28", got[1].Date.Key())
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	s := New()
	date := core.NewDate(2025, 11, 25)
	_, err := s.UpsertEntry(ctx, core.Entry{UserID: "u1", Date: date, PnL: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEntry(ctx, "u1", date))
	require.ErrorIs(t, s.DeleteEntry(ctx, "u1", date), store.ErrNotFound)
	_, err = s.GetEntry(ctx, "u1", date)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	s := New()
	nov := core.YearMonth{Year: 2025, Month: 11}

	g, err := s.GetGoal(ctx, "u1", nov)
	require.NoError(t, err)
	require.Nil(t, g)

	require.NoError(t, s.UpsertGoal(ctx, core.MonthlyGoal{UserID: "u1", Month: nov, Amount: decimal.NewFromInt(1000)}))
	require.NoError(t, s.UpsertGoal(ctx, core.MonthlyGoal{UserID: "u1", Month: core.YearMonth{Year: 2024, Month: 12}, Amount: decimal.NewFromInt(10)}))
	require.NoError(t, s.UpsertGoal(ctx, core.MonthlyGoal{UserID: "u1", Month: nov, Amount: decimal.NewFromInt(1500)}))

	g, err = s.GetGoal(ctx, "u1", nov)
	require.NoError(t, err)
	require.True(t, g.Equal(decimal.NewFromInt(1500)))

	goals, err := s.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	require.Equal(t, nov, goals[0].Month)

	err = s.UpsertGoal(ctx, core.MonthlyGoal{UserID: "u1", Month: nov, Amount: decimal.Zero})
	require.True(t, errors.Is(err, core.ErrInvalidGoal))

	require.NoError(t, s.DeleteGoal(ctx, "u1", nov))
	require.ErrorIs(t, s.DeleteGoal(ctx, "u1", nov), store.ErrNotFound)
}

func TestEventsInRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	end := core.NewDate(2025, 12, 2)
	spanning := core.CalendarEvent{ID: uuid.New(), UserID: "u1", Title: "holiday", StartDate: core.NewDate(2025, 11, 29), EndDate: &end, Type: core.EventBreak}
	single := core.CalendarEvent{ID: uuid.New(), UserID: "u1", Title: "cpi", StartDate: core.NewDate(2025, 11, 13), Type: core.EventNews}
	require.NoError(t, s.CreateEvent(ctx, spanning))
	require.NoError(t, s.CreateEvent(ctx, single))

	dec := core.YearMonth{Year: 2025, Month: 12}
	got, err := s.ListEventsInRange(ctx, "u1", dec.FirstDay(), dec.LastDay())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, spanning.ID, got[0].ID)

	nov := core.YearMonth{Year: 2025, Month: 11}
	got, err = s.ListEventsInRange(ctx, "u1", nov.FirstDay(), nov.LastDay())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, single.ID, got[0].ID)

	require.NoError(t, s.DeleteEvent(ctx, "u1", single.ID))
	_, err = s.GetEvent(ctx, "u1", single.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSeed(t *testing.T) {
	s := New()
	err := s.Seed([]byte(`
users:
  local:
    entries:
      - date: 2025-11-25
        pnl: "329.73"
        trades: 2
      - date: 2025-11-26
        pnl: "-299.31"
    goals:
      - month: 2025-11
        amount: "1000"
    events:
      - title: NFP
        start: 2025-11-07
        type: news
`))
	require.NoError(t, err)

	ctx := context.Background()
	entries, err := s.ListMonth(ctx, "local", core.YearMonth{Year: 2025, Month: 11})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Trades)
	require.Nil(t, entries[1].Trades)

	g, err := s.GetGoal(ctx, "local", core.YearMonth{Year: 2025, Month: 11})
	require.NoError(t, err)
	require.NotNil(t, g)

	events, err := s.ListEventsInRange(ctx, "local", core.NewDate(2025, 11, 7), core.NewDate(2025, 11, 7))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "#3B82F6", events[0].Color)
}

func TestNewFromFileMissing(t *testing.T) {
	s, err := NewFromFile(t.TempDir() + "/missing.yaml")
	require.NoError(t, err)
	all, err := s.ListAll(context.Background(), "local")
	require.NoError(t, err)
	require.Empty(t, all)
}
