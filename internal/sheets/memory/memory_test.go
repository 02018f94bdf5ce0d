package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

func TestMirrorUpsertKeepsRowReference(t *testing.T) {
	m := New()
	ctx := context.Background()
	e := core.Entry{UserID: "u1", Date: core.NewDate(2025, 11, 25), PnL: decimal.NewFromInt(10)}

	ref1, err := m.UpsertEntry(ctx, e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.PnL = decimal.NewFromInt(-3)
	ref2, err := m.UpsertEntry(ctx, e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref1 != ref2 || ref1 != "mem:1" {
		t.Fatalf("expected stable ref mem:1, got %q and %q", ref1, ref2)
	}

	rows := m.Rows()
	if len(rows) != 1 || !rows[0].PnL.Equal(decimal.NewFromInt(-3)) {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestMirrorDelete(t *testing.T) {
	m := New()
	ctx := context.Background()
	date := core.NewDate(2025, 11, 25)
	if _, err := m.UpsertEntry(ctx, core.Entry{UserID: "u1", Date: date}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.DeleteEntry(ctx, "u1", date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.DeleteEntry(ctx, "u1", date); err != nil {
		t.Fatalf("deleting a missing row should succeed, got %v", err)
	}
	if len(m.Rows()) != 0 {
		t.Fatalf("expected no rows")
	}
}

func TestMirrorRejectsInvalidEntry(t *testing.T) {
	if _, err := New().UpsertEntry(context.Background(), core.Entry{Date: core.NewDate(2025, 1, 1)}); err == nil {
		t.Fatalf("expected validation error for missing user")
	}
}

func TestMirrorListEntriesFiltersYear(t *testing.T) {
	m := New()
	ctx := context.Background()
	for _, d := range []core.Date{core.NewDate(2024, 12, 31), core.NewDate(2025, 1, 2), core.NewDate(2025, 1, 1)} {
		if _, err := m.UpsertEntry(ctx, core.Entry{UserID: "u1", Date: d, PnL: decimal.NewFromInt(1)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := m.ListEntries(ctx, 2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Date.Key() != "2025-01-01" || got[1].Date.Key() != "2025-01-02" {
		t.Errorf("unexpected entries: %+v", got)
	}
}
