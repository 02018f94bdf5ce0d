package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/core"
)

// Dashboard is everything the month page shows, computed from one snapshot.
type Dashboard struct {
	Month    core.YearMonth
	Entries  []core.Entry
	Stats    aggregate.MonthlyStats
	Goal     *decimal.Decimal
	Progress aggregate.GoalProgress
	HasGoal  bool
	Events   []core.CalendarEvent
	Series   aggregate.Series
}

// EntryFor returns the month's entry for the day, if any.
func (d Dashboard) EntryFor(day int) (core.Entry, bool) {
	for _, e := range d.Entries {
		if e.Date.Day() == day {
			return e, true
		}
	}
	return core.Entry{}, false
}

// Dashboard loads the month snapshot concurrently and runs the engine on it.
func (s *JournalService) Dashboard(ctx context.Context, userID string, ym core.YearMonth, window aggregate.Window) (Dashboard, error) {
	if err := checkUser(userID); err != nil {
		return Dashboard{}, err
	}
	if err := ym.Validate(); err != nil {
		return Dashboard{}, err
	}

	var (
		monthEntries []core.Entry
		allEntries   []core.Entry
		goal         *decimal.Decimal
		events       []core.CalendarEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		monthEntries, err = s.monthEntries(gctx, userID, ym)
		return err
	})
	g.Go(func() error {
		var err error
		allEntries, err = s.allEntries(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		if goal, err = s.store.GetGoal(gctx, userID, ym); err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if events, err = s.store.ListEventsInRange(gctx, userID, ym.FirstDay(), ym.LastDay()); err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	stats := aggregate.ComputeMonthlyStats(monthEntries)
	progress, hasGoal := aggregate.ComputeGoalProgress(goal, stats)

	return Dashboard{
		Month:    ym,
		Entries:  monthEntries,
		Stats:    stats,
		Goal:     goal,
		Progress: progress,
		HasGoal:  hasGoal,
		Events:   events,
		Series:   aggregate.BuildCumulativeSeries(allEntries, window),
	}, nil
}

// MonthSummary computes stats and goal progress for one month.
func (s *JournalService) MonthSummary(ctx context.Context, userID string, ym core.YearMonth) (Dashboard, error) {
	if err := checkUser(userID); err != nil {
		return Dashboard{}, err
	}
	if err := ym.Validate(); err != nil {
		return Dashboard{}, err
	}

	var (
		entries []core.Entry
		goal    *decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.monthEntries(gctx, userID, ym)
		return err
	})
	g.Go(func() error {
		var err error
		if goal, err = s.store.GetGoal(gctx, userID, ym); err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load month summary: %w", err)
	}

	stats := aggregate.ComputeMonthlyStats(entries)
	progress, hasGoal := aggregate.ComputeGoalProgress(goal, stats)
	return Dashboard{
		Month:    ym,
		Entries:  entries,
		Stats:    stats,
		Goal:     goal,
		Progress: progress,
		HasGoal:  hasGoal,
	}, nil
}

// Series builds the cumulative series for the window over all of the user's entries.
func (s *JournalService) Series(ctx context.Context, userID string, window aggregate.Window) (aggregate.Series, error) {
	entries, err := s.allEntries(ctx, userID)
	if err != nil {
		return aggregate.Series{}, err
	}
	return aggregate.BuildCumulativeSeries(entries, window), nil
}
