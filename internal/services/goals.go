package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

// SetGoal upserts the goal for the month.
func (s *JournalService) SetGoal(ctx context.Context, g core.MonthlyGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertGoal(ctx, g); err != nil {
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

// ClearGoal removes the month's goal. store.ErrNotFound when none is set.
func (s *JournalService) ClearGoal(ctx context.Context, userID string, ym core.YearMonth) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if err := ym.Validate(); err != nil {
		return err
	}
	if err := s.store.DeleteGoal(ctx, userID, ym); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// GetGoal returns nil when no goal is set.
func (s *JournalService) GetGoal(ctx context.Context, userID string, ym core.YearMonth) (*decimal.Decimal, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	if err := ym.Validate(); err != nil {
		return nil, err
	}
	return s.store.GetGoal(ctx, userID, ym)
}

// ListGoals returns every goal of the user, newest month first.
func (s *JournalService) ListGoals(ctx context.Context, userID string) ([]core.MonthlyGoal, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}
