package google

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-id"})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet-id",
		CredentialsFile: t.TempDir() + "/missing.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Journal"}
	ctx := context.Background()
	e := core.Entry{UserID: "u1", Date: core.NewDate(2025, 11, 25), PnL: decimal.NewFromInt(1)}

	if _, err := c.UpsertEntry(ctx, e); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
	if err := c.DeleteEntry(ctx, "u1", e.Date); err == nil {
		t.Fatal("expected error without service")
	}
	if _, err := c.ListEntries(ctx, 2025); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestClient_UpsertValidatesFirst(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Journal"}
	_, err := c.UpsertEntry(context.Background(), core.Entry{Date: core.NewDate(2025, 1, 1)})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClient_SheetForYear(t *testing.T) {
	c := &Client{sheetBase: "Journal"}
	if got := c.sheetFor(2026); got != "2026 Journal" {
		t.Fatalf("unexpected sheet name %q", got)
	}
}
