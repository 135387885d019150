// Package storage persists budgets, expenses, currencies, rates and
// notifications in SQLite. All monetary columns are decimal strings;
// they never pass through binary floating point.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"budgetwatch/internal/core"
)

type Repository struct {
	db *sql.DB
}

// OwnedExpense pairs an expense row with its owner's email, which the
// write services need to address the owning budget.
type OwnedExpense struct {
	core.Expense
	UserEmail string
}

func NewRepository(dbPath string) (*Repository, error) {
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

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *Repository) EnsureUser(ctx context.Context, email, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup user %s: %w", email, err)
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO users (email, name) VALUES (?, ?)`, email, name)
	if err != nil {
		return 0, fmt.Errorf("create user %s: %w", email, err)
	}
	return res.LastInsertId()
}

func (r *Repository) userIDByEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", email, sql.ErrNoRows)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user %s: %w", email, err)
	}
	return id, nil
}

// --- currencies ---

func (r *Repository) EnsureCurrency(ctx context.Context, code string) (int64, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO currencies (code) VALUES (?)`, code); err != nil {
		return 0, fmt.Errorf("ensure currency %s: %w", code, err)
	}
	return r.currencyIDByCode(ctx, code)
}

func (r *Repository) currencyIDByCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM currencies WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("currency %s: %w", code, core.ErrCurrencyNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup currency %s: %w", code, err)
	}
	return id, nil
}

func (r *Repository) SupportedCurrencies(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// --- exchange rates ---

// UpsertRates applies a full rate snapshot in one transaction: either
// every rate lands or none do. Currencies absent from the snapshot
// keep their previous rate.
func (r *Repository) UpsertRates(ctx context.Context, rates map[string]decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rate update: %w", err)
	}
	defer tx.Rollback()

	for code, rate := range rates {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO currencies (code) VALUES (?)`, code); err != nil {
			return fmt.Errorf("ensure currency %s: %w", code, err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO exchange_rates (currency_id, rate, updated_at)
			SELECT id, ?, ? FROM currencies WHERE code = ?
			ON CONFLICT(currency_id) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`,
			rate.String(), time.Now().UTC(), code)
		if err != nil {
			return fmt.Errorf("upsert rate for %s: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rate update: %w", err)
	}
	return nil
}

func (r *Repository) RateByCode(ctx context.Context, code string) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `
		SELECT er.rate FROM exchange_rates er
		JOIN currencies c ON c.id = er.currency_id
		WHERE c.code = ?`, code).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, fmt.Errorf("rate for %s: %w", code, core.ErrRateUnavailable)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("lookup rate for %s: %w", code, err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse stored rate %q for %s: %w", raw, code, err)
	}
	return rate, nil
}

// --- budgets ---

func (r *Repository) CreateBudget(ctx context.Context, userEmail string, b core.Budget) (int64, error) {
	userID, err := r.userIDByEmail(ctx, userEmail)
	if err != nil {
		return 0, err
	}
	currencyID, err := r.currencyIDByCode(ctx, b.Currency)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, month, limit_amount, spent, currency_id)
		VALUES (?, ?, ?, '0', ?)`,
		userID, b.Month.String(), b.Limit.String(), currencyID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("budget for %s %s: %w", userEmail, b.Month, core.ErrDuplicateBudget)
		}
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return res.LastInsertId()
}

const budgetColumns = `
	b.id, b.user_id, u.email, b.month, b.limit_amount, b.spent, c.code
	FROM budgets b
	JOIN users u ON u.id = b.user_id
	JOIN currencies c ON c.id = b.currency_id`

func (r *Repository) BudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` WHERE b.id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrBudgetNotFound)
	}
	return b, err
}

func (r *Repository) BudgetByUserAndMonth(ctx context.Context, email string, month core.Month) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` WHERE u.email = ? AND b.month = ?`, email, month.String())
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget for %s %s: %w", email, month, core.ErrBudgetNotFound)
	}
	return b, err
}

func scanBudget(row *sql.Row) (core.Budget, error) {
	var (
		b            core.Budget
		month        string
		limit, spent string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.UserEmail, &month, &limit, &spent, &b.Currency); err != nil {
		return core.Budget{}, err
	}

	var err error
	b.Month = core.Month(month)
	if b.Limit, err = decimal.NewFromString(limit); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget limit %q: %w", limit, err)
	}
	if b.Spent, err = decimal.NewFromString(spent); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget spent %q: %w", spent, err)
	}
	return b, nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, userEmail string, e core.Expense) (int64, error) {
	userID, err := r.userIDByEmail(ctx, userEmail)
	if err != nil {
		return 0, err
	}
	currencyID, err := r.currencyIDByCode(ctx, e.Currency)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, amount, currency_id, category, occurred_at, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, e.Amount.String(), currencyID, e.Category, e.OccurredAt.UTC(), e.Description)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) UpdateExpense(ctx context.Context, id int64, e core.Expense) error {
	currencyID, err := r.currencyIDByCode(ctx, e.Currency)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET amount = ?, currency_id = ?, category = ?, occurred_at = ?, description = ?
		WHERE id = ?`,
		e.Amount.String(), currencyID, e.Category, e.OccurredAt.UTC(), e.Description, id)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *Repository) ExpenseByID(ctx context.Context, id int64) (OwnedExpense, error) {
	var (
		oe  OwnedExpense
		raw string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT e.id, e.user_id, u.email, e.amount, c.code, e.category, e.occurred_at, e.description
		FROM expenses e
		JOIN users u ON u.id = e.user_id
		JOIN currencies c ON c.id = e.currency_id
		WHERE e.id = ?`, id).
		Scan(&oe.ID, &oe.UserID, &oe.UserEmail, &raw, &oe.Currency, &oe.Category, &oe.OccurredAt, &oe.Description)
	if err != nil {
		return OwnedExpense{}, fmt.Errorf("expense %d: %w", id, err)
	}

	if oe.Amount, err = decimal.NewFromString(raw); err != nil {
		return OwnedExpense{}, fmt.Errorf("parse expense amount %q: %w", raw, err)
	}
	return oe, nil
}

// ExpensesForMonth returns every expense the user logged inside the
// month's [start, end) window, the full input of a recalculation.
func (r *Repository) ExpensesForMonth(ctx context.Context, email string, month core.Month) ([]core.Expense, error) {
	start, end, err := month.Bounds()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.amount, c.code, e.category, e.occurred_at, e.description
		FROM expenses e
		JOIN users u ON u.id = e.user_id
		JOIN currencies c ON c.id = e.currency_id
		WHERE u.email = ? AND e.occurred_at >= ? AND e.occurred_at < ?
		ORDER BY e.id`, email, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s %s: %w", email, month, err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e   core.Expense
			raw string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &raw, &e.Currency, &e.Category, &e.OccurredAt, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("parse expense amount %q: %w", raw, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// --- recalculation persistence ---

// SaveRecalculation writes the recomputed spent value and, when the
// classifier fired, the notification, in a single transaction. The
// budget row is never left with a partial sum.
func (r *Repository) SaveRecalculation(ctx context.Context, budgetID int64, spent decimal.Decimal, n *core.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recalculation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE budgets SET spent = ? WHERE id = ?`, spent.String(), budgetID)
	if err != nil {
		return fmt.Errorf("update spent for budget %d: %w", budgetID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("budget %d: %w", budgetID, core.ErrBudgetNotFound)
	}

	if n != nil {
		var expenseID sql.NullInt64
		if n.ExpenseID != nil {
			expenseID = sql.NullInt64{Int64: *n.ExpenseID, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notifications (user_id, type, message, budget_id, expense_id)
			VALUES (?, ?, ?, ?, ?)`,
			n.UserID, string(n.Type), n.Message, n.BudgetID, expenseID)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recalculation: %w", err)
	}
	return nil
}

// LatestNotificationType reports the tier of the newest notification
// attached to a budget, if any.
func (r *Repository) LatestNotificationType(ctx context.Context, budgetID int64) (core.NotificationType, bool, error) {
	var tier string
	err := r.db.QueryRowContext(ctx, `
		SELECT type FROM notifications WHERE budget_id = ? ORDER BY id DESC LIMIT 1`, budgetID).Scan(&tier)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest notification for budget %d: %w", budgetID, err)
	}
	return core.NotificationType(tier), true, nil
}

func (r *Repository) NotificationsByUser(ctx context.Context, email string) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.type, n.message, n.budget_id, n.expense_id, n.created_at
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE u.email = ?
		ORDER BY n.id DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", email, err)
	}
	defer rows.Close()

	var notifications []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			tier      string
			budgetID  sql.NullInt64
			expenseID sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &tier, &n.Message, &budgetID, &expenseID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = core.NotificationType(tier)
		n.BudgetID = budgetID.Int64
		if expenseID.Valid {
			id := expenseID.Int64
			n.ExpenseID = &id
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
