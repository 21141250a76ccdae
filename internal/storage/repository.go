// Package storage implements the transaction gateway on SQLite. It is the
// authoritative store: ownership scoping, the reserved-state precondition on
// transitions and the available-balance guard on expense writes are all
// enforced here, inside database transactions.
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

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tally/internal/core"
	"tally/internal/gateway"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = "id, kind, amount_cents, category, description, tx_date, status, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		kind, status  string
		date, created string
	)
	if err := row.Scan(&t.ID, &kind, &t.Amount.Cents, &t.Category, &t.Description, &date, &status, &created); err != nil {
		return core.Transaction{}, err
	}

	k, err := core.ParseKind(kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", t.ID, err)
	}
	t.Kind = k

	// Legacy rows may still spell reserved as "blocked" or "pending";
	// ParseStatus folds them into the canonical value.
	st, err := core.ParseStatus(status)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", t.ID, err)
	}
	t.Status = st

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: parse date: %w", t.ID, err)
	}
	t.Date = core.Date{Time: d}

	if ts, err := time.Parse(time.RFC3339, created); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListMonth returns the user's transactions for one month, oldest first.
func (r *SQLiteRepository) ListMonth(ctx context.Context, userID string, month core.Month) ([]core.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = ? AND substr(tx_date, 1, 7) = ?
		ORDER BY tx_date, created_at
	`
	txs, err := r.queryTransactions(ctx, query, userID, month.String())
	if err != nil {
		return nil, fmt.Errorf("list month: %w", err)
	}
	return txs, nil
}

// ListReserved returns reserved transactions, optionally month-restricted.
func (r *SQLiteRepository) ListReserved(ctx context.Context, userID string, month *core.Month) ([]core.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE user_id = ? AND status IN ('reserved', 'blocked', 'pending')
	`
	args := []any{userID}
	if month != nil {
		query += ` AND substr(tx_date, 1, 7) = ?`
		args = append(args, month.String())
	}
	query += ` ORDER BY tx_date, created_at`

	txs, err := r.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reserved: %w", err)
	}
	return txs, nil
}

// Get returns a single transaction owned by the user.
func (r *SQLiteRepository) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = ? AND user_id = ?`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, gateway.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// Create persists a new transaction. For expenses the available-balance
// guard runs inside the same database transaction as the insert, so a
// concurrent create cannot spend the same funds twice.
func (r *SQLiteRepository) Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	if t.Kind == core.Expense {
		if err := r.guardFunds(ctx, dbTx, userID, t.Amount, core.MonthOf(t.Date), ""); err != nil {
			return core.Transaction{}, err
		}
	}

	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_cents, category, description, tx_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, string(t.Kind), t.Amount.Cents, t.Category, t.Description,
		t.Date.Format("2006-01-02"), string(t.Status), t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"kind", t.Kind,
		"status", t.Status,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.Format("2006-01-02"))
	return t, nil
}

// Update rewrites the editable fields of an editable transaction. The
// guarded UPDATE carries the editability precondition so a concurrently
// resolved expense cannot be modified.
func (r *SQLiteRepository) Update(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	if t.Kind == core.Expense {
		if err := r.guardFunds(ctx, dbTx, userID, t.Amount, core.MonthOf(t.Date), t.ID); err != nil {
			return core.Transaction{}, err
		}
	}

	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET amount_cents = ?, category = ?, description = ?, tx_date = ?
		WHERE id = ? AND user_id = ?
		  AND (kind = 'income' OR status IN ('reserved', 'blocked', 'pending'))`,
		t.Amount.Cents, t.Category, t.Description, t.Date.Format("2006-01-02"),
		t.ID, userID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if err := r.explainMiss(ctx, dbTx, userID, t.ID, core.ErrImmutable); err != nil {
			return core.Transaction{}, err
		}
	}
	// Read back inside the transaction so the returned snapshot is the row
	// we just wrote, not whatever a concurrent writer left behind.
	updated, err := r.getInTx(ctx, dbTx, userID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// Delete removes a transaction outright.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return gateway.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// Complete resolves a reserved expense as spent.
func (r *SQLiteRepository) Complete(ctx context.Context, userID, id string) (core.Transaction, error) {
	return r.transition(ctx, userID, id, core.StatusCompleted)
}

// Revert cancels a reserved expense.
func (r *SQLiteRepository) Revert(ctx context.Context, userID, id string) (core.Transaction, error) {
	return r.transition(ctx, userID, id, core.StatusReleased)
}

// transition applies a guarded UPDATE carrying the "currently reserved"
// precondition. When a concurrent actor already resolved the transaction the
// update matches zero rows and the call is rejected, never double-applied.
func (r *SQLiteRepository) transition(ctx context.Context, userID, id string, to core.Status) (core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?
		WHERE id = ? AND user_id = ? AND kind = 'expense' AND status IN ('reserved', 'blocked', 'pending')`,
		string(to), id, userID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transition to %s: %w", to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if err := r.explainMiss(ctx, dbTx, userID, id, core.ErrInvalidTransition); err != nil {
			return core.Transaction{}, err
		}
	}
	resolved, err := r.getInTx(ctx, dbTx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Reservation resolved", "id", id, "status", to)
	return resolved, nil
}

// getInTx reads a transaction row within an open database transaction, so
// Update and transition return the snapshot they committed.
func (r *SQLiteRepository) getInTx(ctx context.Context, dbTx *sql.Tx, userID, id string) (core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = ? AND user_id = ?`
	t, err := scanTransaction(dbTx.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, gateway.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// explainMiss distinguishes "row does not exist" from "precondition failed"
// after a guarded UPDATE matched nothing.
func (r *SQLiteRepository) explainMiss(ctx context.Context, dbTx *sql.Tx, userID, id string, precondition error) error {
	var exists int
	err := dbTx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if exists == 0 {
		return gateway.ErrNotFound
	}
	return precondition
}

// guardFunds is the authoritative insufficient-funds check, run inside the
// caller's transaction. excludeID removes the prior row from the balance when
// an existing expense is being edited.
func (r *SQLiteRepository) guardFunds(ctx context.Context, dbTx *sql.Tx, userID string, amount core.Money, month core.Month, excludeID string) error {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'expense' AND status NOT IN ('released', 'reverted') THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND substr(tx_date, 1, 7) = ? AND id != ?
	`
	var incomeCents, expenseCents int64
	if err := dbTx.QueryRowContext(ctx, query, userID, month.String(), excludeID).Scan(&incomeCents, &expenseCents); err != nil {
		return fmt.Errorf("sum balance: %w", err)
	}

	available := incomeCents - expenseCents
	if amount.Cents > available {
		return &gateway.InsufficientFundsError{Available: core.Money{Cents: available}}
	}
	return nil
}

// MonthSummary computes the server-side month view with the shared
// aggregation over the stored rows, so it agrees with any client-side
// recomputation by construction.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, userID string, month core.Month) (core.MonthSummary, error) {
	txs, err := r.ListMonth(ctx, userID, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.SummarizeMonth(month, txs)
}

// GetSettings returns stored preferences, falling back to defaults for users
// that never saved any.
func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (gateway.Settings, error) {
	var s gateway.Settings
	err := r.db.QueryRowContext(ctx,
		`SELECT date_format, locale, theme FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&s.DateFormat, &s.Locale, &s.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return gateway.Settings{DateFormat: "2006-01-02", Locale: "en", Theme: "light"}, nil
	}
	if err != nil {
		return gateway.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// PutSettings upserts the user's preferences.
func (r *SQLiteRepository) PutSettings(ctx context.Context, userID string, s gateway.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, date_format, locale, theme, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			date_format = excluded.date_format,
			locale = excluded.locale,
			theme = excluded.theme,
			updated_at = excluded.updated_at`,
		userID, s.DateFormat, s.Locale, s.Theme, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// SnapshotKey identifies one precomputed month summary row.
type SnapshotKey struct {
	UserID string
	Month  core.Month
}

// SaveMonthSnapshot upserts the worker-maintained summary totals for quick
// historical reads.
func (r *SQLiteRepository) SaveMonthSnapshot(ctx context.Context, userID string, sum core.MonthSummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO month_summaries (user_id, year, month, total_income_cents, total_expense_cents, reserved_cents, balance_cents, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			total_income_cents = excluded.total_income_cents,
			total_expense_cents = excluded.total_expense_cents,
			reserved_cents = excluded.reserved_cents,
			balance_cents = excluded.balance_cents,
			refreshed_at = excluded.refreshed_at`,
		userID, sum.Month.Year, sum.Month.Month,
		sum.TotalIncome.Cents, sum.TotalExpense.Cents, sum.ReservedBalance.Cents, sum.Balance.Cents,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save month snapshot: %w", err)
	}
	return nil
}

// ListSnapshotKeys returns every (user, month) with a stored snapshot, for
// the worker's periodic refresh.
func (r *SQLiteRepository) ListSnapshotKeys(ctx context.Context) ([]SnapshotKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, year, month FROM month_summaries ORDER BY user_id, year, month`)
	if err != nil {
		return nil, fmt.Errorf("list snapshot keys: %w", err)
	}
	defer rows.Close()

	var out []SnapshotKey
	for rows.Next() {
		var k SnapshotKey
		if err := rows.Scan(&k.UserID, &k.Month.Year, &k.Month.Month); err != nil {
			return nil, fmt.Errorf("scan snapshot key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
