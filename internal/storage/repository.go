// Package storage persists families, memberships, expenses, the budget
// alert ledger and notifications in SQLite.
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

	"bilancio/internal/core"
	"bilancio/internal/log"

	_ "modernc.org/sqlite"
)

// timeLayout is RFC 3339 in UTC. Fixed width, so lexicographic comparison
// in SQL matches chronological order.
const timeLayout = time.RFC3339

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite supports a single writer; one pooled connection avoids
	// SQLITE_BUSY under concurrent evaluations.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
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

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateFamily inserts the family and its owner membership in one
// transaction.
func (r *Repository) CreateFamily(ctx context.Context, f core.Family, owner core.UserID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var budget any
	if f.MonthlyBudget.Cents > 0 {
		budget = f.MonthlyBudget.Cents
	}

	now := encodeTime(f.CreatedAt)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO families (uuid, name, monthly_budget_cents, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(f.ID), f.Name, budget, string(core.FamilyActive), now)
	if err != nil {
		return fmt.Errorf("insert family: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO family_members (family_uuid, user_uuid, role, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(f.ID), string(owner), string(core.RoleOwner), string(core.MemberActive), now)
	if err != nil {
		return fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit family create: %w", err)
	}

	slog.InfoContext(ctx, "Family created",
		log.FieldFamilyID, f.ID,
		"owner_id", owner)
	return nil
}

func (r *Repository) GetFamily(ctx context.Context, id core.FamilyID) (core.Family, error) {
	var (
		f       core.Family
		budget  sql.NullInt64
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT uuid, name, monthly_budget_cents, status, created_at
		 FROM families WHERE uuid = ?`, string(id)).
		Scan(&f.ID, &f.Name, &budget, &f.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Family{}, core.ErrFamilyNotFound
	}
	if err != nil {
		return core.Family{}, fmt.Errorf("select family: %w", err)
	}
	if budget.Valid {
		f.MonthlyBudget = core.Money{Cents: budget.Int64}
	}
	f.CreatedAt = decodeTime(created)
	return f, nil
}

// UpdateFamilyBudget sets the monthly budget; zero cents clears it.
func (r *Repository) UpdateFamilyBudget(ctx context.Context, id core.FamilyID, budget core.Money) error {
	var value any
	if budget.Cents > 0 {
		value = budget.Cents
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE families SET monthly_budget_cents = ? WHERE uuid = ? AND status = ?`,
		value, string(id), string(core.FamilyActive))
	if err != nil {
		return fmt.Errorf("update family budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrFamilyNotFound
	}
	return nil
}

// MonthlyBudget implements alert.BudgetSource. ok is false for unknown or
// deleted families; a NULL budget reads as zero cents.
func (r *Repository) MonthlyBudget(ctx context.Context, familyID core.FamilyID) (core.Money, bool, error) {
	var budget sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_budget_cents FROM families WHERE uuid = ? AND status = ?`,
		string(familyID), string(core.FamilyActive)).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, false, nil
	}
	if err != nil {
		return core.Money{}, false, fmt.Errorf("select budget: %w", err)
	}
	if !budget.Valid {
		return core.Money{}, true, nil
	}
	return core.Money{Cents: budget.Int64}, true, nil
}

// IsActiveMember implements access.MembershipStore.
func (r *Repository) IsActiveMember(ctx context.Context, userID core.UserID, familyID core.FamilyID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM family_members
		 WHERE user_uuid = ? AND family_uuid = ? AND status = ?`,
		string(userID), string(familyID), string(core.MemberActive)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select membership: %w", err)
	}
	return true, nil
}

// AddMember inserts an active membership, or revives a left one.
func (r *Repository) AddMember(ctx context.Context, m core.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO family_members (family_uuid, user_uuid, role, status, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (family_uuid, user_uuid)
		 DO UPDATE SET role = excluded.role, status = excluded.status`,
		string(m.FamilyID), string(m.UserID), string(m.Role), string(m.Status),
		encodeTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// MarkMemberLeft flips a membership to left without deleting the row.
func (r *Repository) MarkMemberLeft(ctx context.Context, userID core.UserID, familyID core.FamilyID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE family_members SET status = ?
		 WHERE user_uuid = ? AND family_uuid = ?`,
		string(core.MemberLeft), string(userID), string(familyID))
	if err != nil {
		return fmt.Errorf("mark member left: %w", err)
	}
	return nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) error {
	now := encodeTime(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (uuid, family_uuid, user_uuid, description, amount_cents, expense_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.FamilyID), string(e.UserID), e.Description,
		e.Amount.Cents, encodeTime(e.Date), now, now)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		log.FieldExpenseID, e.ID,
		log.FieldFamilyID, e.FamilyID,
		"amount_cents", e.Amount.Cents)
	return nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET description = ?, amount_cents = ?, expense_date = ?, updated_at = ?
		 WHERE uuid = ? AND family_uuid = ?`,
		e.Description, e.Amount.Cents, encodeTime(e.Date), encodeTime(time.Now()),
		e.ID, string(e.FamilyID))
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrExpenseNotFound
	}
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT uuid, family_uuid, user_uuid, description, amount_cents, expense_date
		 FROM expenses WHERE uuid = ?`, id).
		Scan(&e.ID, &e.FamilyID, &e.UserID, &e.Description, &e.Amount.Cents, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	e.Date = decodeTime(date)
	return e, nil
}

// MonthToDateExpense implements alert.SpendAggregator: the sum of all
// expenses booked inside the calendar month, computed fresh per call.
func (r *Repository) MonthToDateExpense(ctx context.Context, familyID core.FamilyID, month core.YearMonth) (core.Money, error) {
	start, end := month.Bounds()
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount_cents) FROM expenses
		 WHERE family_uuid = ? AND expense_date >= ? AND expense_date < ?`,
		string(familyID), encodeTime(start), encodeTime(end)).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum month expenses: %w", err)
	}
	if !total.Valid {
		return core.Money{}, nil
	}
	return core.Money{Cents: total.Int64}, nil
}

// TryCreate implements alert.AlertLedger. The insert races on the unique
// (family_uuid, tier, alert_month) key; ON CONFLICT DO NOTHING turns the
// loser's duplicate into a clean created=false.
func (r *Repository) TryCreate(ctx context.Context, familyID core.FamilyID, tierCode string, month core.YearMonth) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_alerts (family_uuid, tier, alert_month, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (family_uuid, tier, alert_month) DO NOTHING`,
		string(familyID), tierCode, string(month), encodeTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("insert budget alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// InsertNotification implements alert.NotificationSink.
func (r *Repository) InsertNotification(ctx context.Context, n core.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (uuid, family_uuid, type, title, message, alert_month, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.FamilyID), n.Type, n.Title, n.Message,
		string(n.AlertMonth), boolToInt(n.IsRead), encodeTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, familyID core.FamilyID) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT uuid, family_uuid, type, title, message, alert_month, is_read, created_at
		 FROM notifications WHERE family_uuid = ?
		 ORDER BY created_at DESC`, string(familyID))
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n       core.Notification
			read    int
			created string
		)
		if err := rows.Scan(&n.ID, &n.FamilyID, &n.Type, &n.Title, &n.Message,
			&n.AlertMonth, &read, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.IsRead = read != 0
		n.CreatedAt = decodeTime(created)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *Repository) GetNotification(ctx context.Context, id string) (core.Notification, error) {
	var (
		n       core.Notification
		read    int
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT uuid, family_uuid, type, title, message, alert_month, is_read, created_at
		 FROM notifications WHERE uuid = ?`, id).
		Scan(&n.ID, &n.FamilyID, &n.Type, &n.Title, &n.Message, &n.AlertMonth, &read, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Notification{}, core.ErrNotificationNotFound
	}
	if err != nil {
		return core.Notification{}, fmt.Errorf("select notification: %w", err)
	}
	n.IsRead = read != 0
	n.CreatedAt = decodeTime(created)
	return n, nil
}

func (r *Repository) UnreadNotificationCount(ctx context.Context, familyID core.FamilyID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE family_uuid = ? AND is_read = 0`,
		string(familyID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE uuid = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotificationNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, familyID core.FamilyID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE family_uuid = ? AND is_read = 0`,
		string(familyID))
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// EvaluationKey identifies one family/month pair with recent expense
// activity, used by the worker's periodic backstop.
type EvaluationKey struct {
	FamilyID core.FamilyID
	Month    core.YearMonth
}

// RecentExpenseMonths lists the distinct family/month pairs touched by
// expense writes since the given time.
func (r *Repository) RecentExpenseMonths(ctx context.Context, since time.Time, limit int) ([]EvaluationKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT family_uuid, substr(expense_date, 1, 7)
		 FROM expenses WHERE updated_at >= ?
		 LIMIT ?`, encodeTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent expense months: %w", err)
	}
	defer rows.Close()

	var out []EvaluationKey
	for rows.Next() {
		var key EvaluationKey
		if err := rows.Scan(&key.FamilyID, &key.Month); err != nil {
			return nil, fmt.Errorf("scan evaluation key: %w", err)
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation keys: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
