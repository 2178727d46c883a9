// Package storage is the relational row source for reporting and export.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// placeholder returns the n-th (1 based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Repository reads expenses, categories and settings from SQLite or
// Postgres. It implements ports.RowSource, ports.SettingsReader and
// ports.HealthChecker.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(Postgres, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if d == Postgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	return &Repository{db: db, dialect: d}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// expenseQuery builds the filtered select. Only bind parameters carry user
// input.
func (r *Repository) expenseQuery(f core.FilterCriteria, order core.SortOrder) (string, []any) {
	var b strings.Builder
	args := []any{f.OwnerID}
	b.WriteString(`SELECT e.id, e.user_id, e.amount, e.category_id, c.name, c.icon, e.date, e.notes
FROM expenses e LEFT JOIN categories c ON e.category_id = c.id
WHERE e.user_id = ` + r.dialect.placeholder(1))

	add := func(cond string, v any) {
		args = append(args, v)
		b.WriteString(" AND " + cond + " " + r.dialect.placeholder(len(args)))
	}
	if !f.DateRange.Start.IsEmpty() {
		add("e.date >=", f.DateRange.Start.String())
	}
	if !f.DateRange.End.IsEmpty() {
		add("e.date <=", f.DateRange.End.String())
	}
	if f.CategoryID != nil {
		add("e.category_id =", *f.CategoryID)
	}

	if order == core.SortDateDesc {
		b.WriteString(" ORDER BY e.date DESC, e.id DESC")
	} else {
		b.WriteString(" ORDER BY e.date ASC, e.id ASC")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT " + r.dialect.placeholder(len(args)))
	}
	return b.String(), args
}

// Expenses streams matching rows straight from the cursor. The query runs
// when the sequence is iterated, and again on every iteration.
func (r *Repository) Expenses(ctx context.Context, f core.FilterCriteria, order core.SortOrder) core.Rows {
	return func(yield func(core.ExpenseRecord, error) bool) {
		query, args := r.expenseQuery(f, order)
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(core.ExpenseRecord{}, fmt.Errorf("query expenses: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanExpense(rows)
			if err != nil {
				yield(core.ExpenseRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(core.ExpenseRecord{}, fmt.Errorf("iterate expenses: %w", err))
		}
	}
}

func scanExpense(rows *sql.Rows) (core.ExpenseRecord, error) {
	var (
		rec        core.ExpenseRecord
		amount     string
		categoryID sql.NullInt64
		name, icon sql.NullString
		date       any
		notes      sql.NullString
	)
	if err := rows.Scan(&rec.ID, &rec.OwnerID, &amount, &categoryID, &name, &icon, &date, &notes); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("scan expense: %w", err)
	}
	d, err := toDate(date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %d: %w", rec.ID, err)
	}
	rec.Amount = amount
	rec.Date = d
	if categoryID.Valid {
		id := categoryID.Int64
		rec.CategoryID = &id
	}
	rec.CategoryName = nullString(name)
	rec.CategoryIcon = nullString(icon)
	rec.Notes = nullString(notes)
	return rec, nil
}

// toDate accepts the representations drivers return for a date column.
func toDate(v any) (core.Date, error) {
	switch t := v.(type) {
	case time.Time:
		return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
	case string:
		return core.ParseDate(dateOnly(t))
	case []byte:
		return core.ParseDate(dateOnly(string(t)))
	default:
		return core.Date{}, fmt.Errorf("unexpected date type %T", v)
	}
}

func dateOnly(s string) string {
	if len(s) > len(time.DateOnly) {
		return s[:len(time.DateOnly)]
	}
	return s
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Settings returns the owner's currency and the most recent monthly budget.
// A missing user or budget leaves the corresponding field empty.
func (r *Repository) Settings(ctx context.Context, ownerID int64) (core.Settings, error) {
	var s core.Settings
	p := r.dialect.placeholder(1)

	err := r.db.QueryRowContext(ctx, `SELECT currency_code FROM users WHERE id = `+p, ownerID).Scan(&s.CurrencyCode)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, fmt.Errorf("get currency: %w", err)
	}

	var limit string
	err = r.db.QueryRowContext(ctx,
		`SELECT monthly_limit FROM budgets WHERE user_id = `+p+` ORDER BY year DESC, month DESC LIMIT 1`,
		ownerID).Scan(&limit)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return core.Settings{}, fmt.Errorf("get budget: %w", err)
	default:
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return core.Settings{}, fmt.Errorf("budget limit %q: %w", limit, core.ErrInvalidAmount)
		}
		s.MonthlyLimit = &d
	}
	return s, nil
}

func (r *Repository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var icon sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Icon = nullString(icon)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// insert runs an INSERT and returns the new id.
func (r *Repository) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if r.dialect == Postgres {
		var id int64
		if err := r.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) binds(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = r.dialect.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

// CreateUser adds an owner with a preferred currency.
func (r *Repository) CreateUser(ctx context.Context, email, currency string) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO users (email, currency_code) VALUES (`+r.binds(2)+`)`, email, currency)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// CategoryID returns the id of the named category, creating it if needed.
func (r *Repository) CategoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = `+r.dialect.placeholder(1), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get category: %w", err)
	}
	id, err = r.insert(ctx, `INSERT INTO categories (name) VALUES (`+r.binds(1)+`)`, name)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

// AddExpense stores a record. The amount must parse as a non-negative decimal.
func (r *Repository) AddExpense(ctx context.Context, rec core.ExpenseRecord) (int64, error) {
	if _, err := core.ParseAmount(rec.Amount); err != nil {
		return 0, err
	}
	if err := rec.Date.Validate(); err != nil {
		return 0, err
	}
	id, err := r.insert(ctx,
		`INSERT INTO expenses (user_id, category_id, amount, date, notes) VALUES (`+r.binds(5)+`)`,
		rec.OwnerID, rec.CategoryID, rec.Amount, rec.Date.String(), rec.Notes)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense stored", "id", id, "owner_id", rec.OwnerID, "date", rec.Date.String())
	return id, nil
}

// SetBudget records the monthly limit for a given month.
func (r *Repository) SetBudget(ctx context.Context, ownerID int64, limit decimal.Decimal, year, month int) error {
	q := `INSERT INTO budgets (user_id, monthly_limit, month, year) VALUES (` + r.binds(4) + `)
ON CONFLICT (user_id, month, year) DO UPDATE SET monthly_limit = excluded.monthly_limit`
	if _, err := r.db.ExecContext(ctx, q, ownerID, limit.String(), month, year); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}
