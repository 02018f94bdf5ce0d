package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pnljournal/internal/backend"
	"pnljournal/internal/core"
	"pnljournal/internal/services"
	"pnljournal/internal/sheets"
	memsheet "pnljournal/internal/sheets/memory"
	"pnljournal/internal/store/memory"
)

// sharedOpener hands every command the same in-memory journal.
func sharedOpener() opener {
	journal := services.NewJournalService(memory.New(), nil, nil)
	return func(context.Context) (*backend.BackendResult, error) {
		return &backend.BackendResult{Journal: journal, Cleanup: func() error { return nil }}, nil
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	return runWithMirror(t, open, nil, args...)
}

func runWithMirror(t *testing.T, open opener, mirror mirrorOpener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(open, mirror, "local")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entries.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestImportExportRoundTrip(t *testing.T) {
	open := sharedOpener()
	path := writeCSV(t, "date,pnl,trades\n2025-11-26,-299.31,4\n2025-11-25,329.73,\n")

	out, err := run(t, open, "import", path, "--user", "alice")
	require.NoError(t, err)
	require.Equal(t, "imported 2 entries for alice\n", out)

	out, err = run(t, open, "export", "--user", "alice")
	require.NoError(t, err)
	want := "date,pnl,trades\n2025-11-25,329.73,\n2025-11-26,-299.31,4\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, open, "export")
	require.NoError(t, err)
	require.Equal(t, "date,pnl,trades\n", out)
}

func TestImportRejectsBadRow(t *testing.T) {
	open := sharedOpener()
	path := writeCSV(t, "date,pnl,trades\n2025-11-25,abc,\n")

	_, err := run(t, open, "import", path)
	require.ErrorContains(t, err, "line 2")
}

func TestExportToFile(t *testing.T) {
	open := sharedOpener()
	_, err := run(t, open, "import", writeCSV(t, "date,pnl,trades\n2025-11-25,10,1\n"))
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out.csv")
	_, err = run(t, open, "export", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "date,pnl,trades\n2025-11-25,10.00,1\n", string(data))
}

func TestStats(t *testing.T) {
	open := sharedOpener()
	_, err := run(t, open, "import", writeCSV(t,
		"date,pnl,trades\n2025-11-25,329.73,\n2025-11-26,-299.31,\n2025-11-27,-75.93,\n2025-11-28,-501.90,\n2025-11-30,75.88,\n"))
	require.NoError(t, err)

	out, err := run(t, open, "stats", "--month", "2025-11", "--window", "all")
	require.NoError(t, err)
	require.Contains(t, out, "Total P&L:    -471.53\n")
	require.Contains(t, out, "Winning days: 2\n")
	require.Contains(t, out, "Losing days:  3\n")
	require.Contains(t, out, "Goal:         not set\n")
	require.Contains(t, out, "Series (all): 5 days\n")

	_, err = run(t, open, "stats", "--window", "90d")
	require.Error(t, err)
}

func TestParseMonthFlag(t *testing.T) {
	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	ym, err := parseMonthFlag("", now)
	require.NoError(t, err)
	require.Equal(t, core.YearMonth{Year: 2026, Month: 3}, ym)

	ym, err = parseMonthFlag("2025-11", now)
	require.NoError(t, err)
	require.Equal(t, core.YearMonth{Year: 2025, Month: 11}, ym)

	_, err = parseMonthFlag("2025-13", now)
	require.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestWithJournalRunsCleanup(t *testing.T) {
	cleaned := false
	open := func(context.Context) (*backend.BackendResult, error) {
		return &backend.BackendResult{
			Journal: services.NewJournalService(memory.New(), nil, nil),
			Cleanup: func() error { cleaned = true; return nil },
		}, nil
	}
	_, err := run(t, open, "export")
	require.NoError(t, err)
	require.True(t, cleaned)
}

func TestVerifyMirror(t *testing.T) {
	open := sharedOpener()
	_, err := run(t, open, "import", writeCSV(t, "date,pnl,trades\n2025-11-25,10,1\n2025-11-26,-5,\n2024-12-31,7,\n"))
	require.NoError(t, err)

	m := memsheet.New()
	ctx := context.Background()
	ten, one := decimal.NewFromInt(10), 1
	_, err = m.UpsertEntry(ctx, core.Entry{UserID: "local", Date: core.NewDate(2025, 11, 25), PnL: ten, Trades: &one})
	require.NoError(t, err)
	mirror := func(context.Context) (sheets.EntryReader, error) { return m, nil }

	out, err := runWithMirror(t, open, mirror, "verify-mirror", "--year", "2025")
	require.ErrorContains(t, err, "1 differences")
	require.Contains(t, out, "missing  2025-11-26  journal=-5.00  mirror=-")
	require.NotContains(t, out, "2024-12-31")

	_, err = m.UpsertEntry(ctx, core.Entry{UserID: "local", Date: core.NewDate(2025, 11, 26), PnL: decimal.NewFromInt(-5)})
	require.NoError(t, err)
	out, err = runWithMirror(t, open, mirror, "verify-mirror", "--year", "2025")
	require.NoError(t, err)
	require.Equal(t, "mirror matches journal for local in 2025 (2 entries)\n", out)
}

func TestVerifyMirrorWithoutMirror(t *testing.T) {
	_, err := run(t, sharedOpener(), "verify-mirror")
	require.ErrorContains(t, err, "no spreadsheet mirror configured")
}
