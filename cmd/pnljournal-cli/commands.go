package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pnljournal/internal/aggregate"
	"pnljournal/internal/backend"
	"pnljournal/internal/core"
	"pnljournal/internal/csvio"
	"pnljournal/internal/sheets"
)

// opener builds the journal backend for one command run.
type opener func(ctx context.Context) (*backend.BackendResult, error)

// mirrorOpener builds the spreadsheet reader for verify-mirror.
type mirrorOpener func(ctx context.Context) (sheets.EntryReader, error)

func newRootCmd(open opener, mirror mirrorOpener, defaultUser string) *cobra.Command {
	root := &cobra.Command{
		Use:           "pnljournal-cli",
		Short:         "Import, export and summarize trading journal entries",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("user", defaultUser, "journal user id")

	root.AddCommand(
		newImportCmd(open),
		newExportCmd(open),
		newStatsCmd(open),
		newVerifyMirrorCmd(open, mirror),
	)
	return root
}

// withJournal opens the backend, runs fn and always runs the cleanup.
func withJournal(cmd *cobra.Command, open opener, fn func(*backend.BackendResult) error) (err error) {
	res, err := open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := res.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(res)
}

func newImportCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import entries from a CSV file with date,pnl,trades columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := csvio.ReadEntries(f, user)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			return withJournal(cmd, open, func(res *backend.BackendResult) error {
				n, err := res.Journal.ImportEntries(cmd.Context(), user, entries)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries for %s\n", n, user)
				return nil
			})
		},
	}
}

func newExportCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries of a user as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			output, _ := cmd.Flags().GetString("output")

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			return withJournal(cmd, open, func(res *backend.BackendResult) error {
				entries, err := res.Journal.ExportEntries(cmd.Context(), user)
				if err != nil {
					return err
				}
				return csvio.WriteEntries(w, entries)
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func newStatsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print month statistics, goal progress and series summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			monthFlag, _ := cmd.Flags().GetString("month")
			windowFlag, _ := cmd.Flags().GetString("window")

			ym, err := parseMonthFlag(monthFlag, time.Now())
			if err != nil {
				return err
			}
			window, err := aggregate.ParseWindow(windowFlag)
			if err != nil {
				return err
			}

			return withJournal(cmd, open, func(res *backend.BackendResult) error {
				d, err := res.Journal.MonthSummary(cmd.Context(), user, ym)
				if err != nil {
					return err
				}
				series, err := res.Journal.Series(cmd.Context(), user, window)
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), ym, d.Stats, d.Progress, d.HasGoal, series)
				return nil
			})
		},
	}
	cmd.Flags().String("month", "", "month as YYYY-MM (default current month)")
	cmd.Flags().String("window", string(aggregate.Window30D), "series window: 7d, 30d or all")
	return cmd
}

func newVerifyMirrorCmd(open opener, mirror mirrorOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-mirror",
		Short: "Compare a user's entries for one year against the spreadsheet mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			year, _ := cmd.Flags().GetInt("year")
			if year == 0 {
				year = time.Now().Year()
			}
			if mirror == nil {
				return errors.New("no spreadsheet mirror configured")
			}
			reader, err := mirror(cmd.Context())
			if err != nil {
				return fmt.Errorf("open mirror: %w", err)
			}

			return withJournal(cmd, open, func(res *backend.BackendResult) error {
				all, err := res.Journal.ExportEntries(cmd.Context(), user)
				if err != nil {
					return err
				}
				var journal []core.Entry
				for _, e := range all {
					if e.Date.Year() == year {
						journal = append(journal, e)
					}
				}
				mirrored, err := reader.ListEntries(cmd.Context(), year)
				if err != nil {
					return fmt.Errorf("read mirror: %w", err)
				}

				diffs := sheets.Compare(user, journal, mirrored)
				w := cmd.OutOrStdout()
				for _, d := range diffs {
					fmt.Fprintf(w, "%-8s %s  journal=%s  mirror=%s\n", d.Kind, d.Date.Key(), describe(d.Journal), describe(d.Mirrored))
				}
				if len(diffs) > 0 {
					return fmt.Errorf("mirror out of sync for %s in %d: %d differences", user, year, len(diffs))
				}
				fmt.Fprintf(w, "mirror matches journal for %s in %d (%d entries)\n", user, year, len(journal))
				return nil
			})
		},
	}
	cmd.Flags().Int("year", 0, "year to verify (default current year)")
	return cmd
}

func describe(e *core.Entry) string {
	if e == nil {
		return "-"
	}
	if e.Trades == nil {
		return e.PnL.StringFixed(2)
	}
	return fmt.Sprintf("%s/%d", e.PnL.StringFixed(2), *e.Trades)
}

// parseMonthFlag accepts YYYY-MM; empty means the month of now.
func parseMonthFlag(s string, now time.Time) (core.YearMonth, error) {
	if s == "" {
		return core.YearMonth{Year: now.Year(), Month: int(now.Month())}, nil
	}
	d, err := core.ParseDateKey(s + "-01")
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("invalid month %q: %w", s, core.ErrInvalidMonth)
	}
	return d.YearMonth(), nil
}

func printStats(w io.Writer, ym core.YearMonth, stats aggregate.MonthlyStats, progress aggregate.GoalProgress, hasGoal bool, series aggregate.Series) {
	fmt.Fprintf(w, "Month:        %s\n", ym)
	fmt.Fprintf(w, "Total P&L:    %s\n", stats.TotalPnL.StringFixed(2))
	fmt.Fprintf(w, "Winning days: %d\n", stats.WinningDays)
	fmt.Fprintf(w, "Losing days:  %d\n", stats.LosingDays)
	fmt.Fprintf(w, "Win rate:     %s%%\n", stats.WinRate().StringFixed(1))
	fmt.Fprintf(w, "Trades:       %d\n", stats.TotalTrades)
	if hasGoal {
		fmt.Fprintf(w, "Goal:         %s (%s%%, remaining %s)\n",
			progress.Goal.StringFixed(2), progress.Percentage.StringFixed(1), progress.Remaining.StringFixed(2))
	} else {
		fmt.Fprintln(w, "Goal:         not set")
	}

	sum := series.Summary
	fmt.Fprintf(w, "\nSeries (%s): %d days\n", series.Window, sum.Days)
	if sum.Days == 0 {
		return
	}
	fmt.Fprintf(w, "Cumulative:   %s\n", sum.TotalPnL.StringFixed(2))
	fmt.Fprintf(w, "Window P&L:   %s\n", sum.WindowPnL.StringFixed(2))
	fmt.Fprintf(w, "Best day:     %s\n", sum.BestDay.StringFixed(2))
	fmt.Fprintf(w, "Worst day:    %s\n", sum.WorstDay.StringFixed(2))
	fmt.Fprintf(w, "Average day:  %.2f\n", sum.AverageDay)
	fmt.Fprintf(w, "Median day:   %.2f\n", sum.MedianDay)
	fmt.Fprintf(w, "Std dev:      %.2f\n", sum.StdDev)
}
