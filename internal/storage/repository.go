package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"pnljournal/internal/core"
	"pnljournal/internal/store"

	_ "modernc.org/sqlite"
)

// Sync states of a stored entry.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ store.Journal   = (*SQLiteRepository)(nil)
	_ store.SyncQueue = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const entryColumns = `user_id, date, pnl, trades, version, updated_at`

func scanEntry(sc interface{ Scan(...any) error }) (core.Entry, error) {
	var (
		e       core.Entry
		dateKey string
		trades  sql.NullInt64
		updated int64
	)
	if err := sc.Scan(&e.UserID, &dateKey, &e.PnL, &trades, &e.Version, &updated); err != nil {
		return core.Entry{}, err
	}
	date, err := core.ParseDateKey(dateKey)
	if err != nil {
		return core.Entry{}, err
	}
	e.Date = date
	if trades.Valid {
		n := int(trades.Int64)
		e.Trades = &n
	}
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return e, nil
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListMonth implements store.EntryStore
func (r *SQLiteRepository) ListMonth(ctx context.Context, userID string, month core.YearMonth) ([]core.Entry, error) {
	entries, err := r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM pnl_entries
		 WHERE user_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date ASC`,
		userID, month.FirstDay().Key(), month.LastDay().Key())
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", month, err)
	}
	return entries, nil
}

// ListAll implements store.EntryStore
func (r *SQLiteRepository) ListAll(ctx context.Context, userID string) ([]core.Entry, error) {
	entries, err := r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM pnl_entries WHERE user_id = ? ORDER BY date ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// GetEntry implements store.EntryStore
func (r *SQLiteRepository) GetEntry(ctx context.Context, userID string, date core.Date) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM pnl_entries WHERE user_id = ? AND date = ?`,
		userID, date.Key())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, store.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %s: %w", date.Key(), err)
	}
	return e, nil
}

// UpsertEntry implements store.EntryStore. Every write resets the row to
// pending sync and bumps its version.
func (r *SQLiteRepository) UpsertEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	var trades sql.NullInt64
	if e.Trades != nil {
		trades = sql.NullInt64{Int64: int64(*e.Trades), Valid: true}
	}
	now := r.now().UTC()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO pnl_entries (user_id, date, pnl, trades, version, sync_status, updated_at)
		 VALUES (?, ?, ?, ?, 1, 'pending', ?)
		 ON CONFLICT (user_id, date) DO UPDATE SET
		     pnl = excluded.pnl,
		     trades = excluded.trades,
		     version = pnl_entries.version + 1,
		     sync_status = 'pending',
		     sync_error = NULL,
		     sync_attempts = 0,
		     last_attempt_at = NULL,
		     updated_at = excluded.updated_at
		 RETURNING version`,
		e.UserID, e.Date.Key(), e.PnL.String(), trades, now.UnixMilli(),
	).Scan(&e.Version)
	if err != nil {
		return core.Entry{}, fmt.Errorf("upsert entry %s: %w", e.Date.Key(), err)
	}
	e.UpdatedAt = time.UnixMilli(now.UnixMilli()).UTC()

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"user_id", e.UserID,
		"date", e.Date.Key(),
		"pnl", e.PnL.String(),
		"version", e.Version)

	return e, nil
}

// DeleteEntry implements store.EntryStore
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, userID string, date core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pnl_entries WHERE user_id = ? AND date = ?`, userID, date.Key())
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", date.Key(), err)
	}
	return requireAffected(res)
}

// ListPendingSync implements store.SyncQueue. Rows never tried come first,
// then failed rows by fewest attempts and oldest attempt, so rows that keep
// failing cannot starve newer ones.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]core.Entry, error) {
	entries, err := r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM pnl_entries
		 WHERE sync_status IN ('pending', 'error')
		 ORDER BY sync_attempts ASC, COALESCE(last_attempt_at, updated_at) ASC, updated_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	return entries, nil
}

// MarkSynced implements store.SyncQueue. Stale versions are ignored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, userID string, date core.Date, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pnl_entries SET sync_status = 'synced', sync_error = NULL
		 WHERE user_id = ? AND date = ? AND version = ?`,
		userID, date.Key(), version)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", date.Key(), err)
	}
	return nil
}

// MarkSyncError implements store.SyncQueue. It counts the attempt and
// moves the row behind untried ones. Stale versions are ignored.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, userID string, date core.Date, version int64, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pnl_entries
		 SET sync_status = 'error', sync_error = ?,
		     sync_attempts = sync_attempts + 1, last_attempt_at = ?
		 WHERE user_id = ? AND date = ? AND version = ?`,
		msg, r.now().UTC().UnixMilli(), userID, date.Key(), version)
	if err != nil {
		return fmt.Errorf("mark sync error %s: %w", date.Key(), err)
	}
	return nil
}

// SyncCounts returns the number of entries per sync status.
func (r *SQLiteRepository) SyncCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sync_status, COUNT(*) FROM pnl_entries GROUP BY sync_status`)
	if err != nil {
		return nil, fmt.Errorf("count sync status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{SyncPending: 0, SyncSynced: 0, SyncError: 0}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sync count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// GetGoal implements store.GoalStore
func (r *SQLiteRepository) GetGoal(ctx context.Context, userID string, month core.YearMonth) (*decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM monthly_goals WHERE user_id = ? AND year = ? AND month = ?`,
		userID, month.Year, month.Month).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal %s: %w", month, err)
	}
	return &amount, nil
}

// UpsertGoal implements store.GoalStore
func (r *SQLiteRepository) UpsertGoal(ctx context.Context, g core.MonthlyGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_goals (user_id, year, month, amount, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, year, month) DO UPDATE SET
		     amount = excluded.amount,
		     updated_at = excluded.updated_at`,
		g.UserID, g.Month.Year, g.Month.Month, g.Amount.String(), r.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert goal %s: %w", g.Month, err)
	}
	return nil
}

// DeleteGoal implements store.GoalStore
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID string, month core.YearMonth) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM monthly_goals WHERE user_id = ? AND year = ? AND month = ?`,
		userID, month.Year, month.Month)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", month, err)
	}
	return requireAffected(res)
}

// ListGoals implements store.GoalStore
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.MonthlyGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT year, month, amount FROM monthly_goals
		 WHERE user_id = ?
		 ORDER BY year DESC, month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyGoal
	for rows.Next() {
		g := core.MonthlyGoal{UserID: userID}
		if err := rows.Scan(&g.Month.Year, &g.Month.Month, &g.Amount); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
