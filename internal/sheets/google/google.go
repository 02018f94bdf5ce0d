package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"pnljournal/internal/core"
	ports "pnljournal/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// journalColumns is the header written to every yearly journal sheet.
var journalColumns = []any{"Date", "User", "PnL", "Trades", "UpdatedAt", "Version"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Journal"); rows go to "<year> <base>".
	sheetBase string
}

var (
	_ ports.EntryMirror = (*Client)(nil)
	_ ports.EntryReader = (*Client)(nil)
)

// Options configures the Sheets client. One of CredentialsJSON or
// CredentialsFile is required; GOOGLE_APPLICATION_CREDENTIALS is used as a
// fallback file path.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Journal"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsFile := strings.TrimSpace(opts.CredentialsFile)
	if opts.CredentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetFor(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

func (c *Client) readRows(ctx context.Context, sheet string) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:F", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// UpsertEntry implements ports.EntryMirror. An existing row for the same
// (user, date) is overwritten in place; otherwise the entry is appended.
func (c *Client) UpsertEntry(ctx context.Context, e core.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.sheetFor(e.Date.Year())
	values, err := c.readRows(ctx, sheet)
	if err != nil {
		return "", err
	}

	row := findRow(values, e.UserID, e.Date.Key())
	if row == 0 {
		row = len(values) + 1
		if len(values) == 0 {
			if err := c.writeRow(ctx, sheet, 1, journalColumns); err != nil {
				return "", fmt.Errorf("write header in %s: %w", sheet, err)
			}
			row = 2
		}
	}

	if err := c.writeRow(ctx, sheet, row, formatRow(e)); err != nil {
		return "", fmt.Errorf("write row %d in %s: %w", row, sheet, err)
	}
	return fmt.Sprintf("%s!A%d:F%d", sheet, row, row), nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, row int, cells []any) error {
	rng := fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{cells}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

// DeleteEntry implements ports.EntryMirror by clearing the matching row.
func (c *Client) DeleteEntry(ctx context.Context, userID string, date core.Date) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := c.sheetFor(date.Year())
	values, err := c.readRows(ctx, sheet)
	if err != nil {
		return err
	}
	row := findRow(values, userID, date.Key())
	if row == 0 {
		slog.DebugContext(ctx, "No mirrored row to delete", "user_id", userID, "date", date.Key())
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ListEntries reads every mirrored entry for the year.
func (c *Client) ListEntries(ctx context.Context, year int) ([]core.Entry, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readRows(ctx, c.sheetFor(year))
	if err != nil {
		return nil, err
	}
	return parseJournalRows(values), nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func formatRow(e core.Entry) []any {
	trades := ""
	if e.Trades != nil {
		trades = strconv.Itoa(*e.Trades)
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return []any{
		e.Date.Key(),
		e.UserID,
		e.PnL.StringFixed(2),
		trades,
		updated.UTC().Format(time.RFC3339),
		e.Version,
	}
}
