// Package sqlite is the embedded single-file backend. It suits local use and
// small deployments; the schema is managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finease/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// typeExpr folds the legacy spelling into "expense" inside SQL.
const typeExpr = `CASE WHEN lower(type) IN ('expense', 'expanse') THEN 'expense' ELSE lower(type) END`

const selectColumns = `id, email, amount, type, category, date, extra`

type Repository struct {
	db *sql.DB
}

// Open creates the database file if needed, applies migrations and returns
// a ready repository.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
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

func (r *Repository) Insert(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	extra, err := encodeExtra(tx.Extra)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, email, amount, type, category, date, extra) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, tx.Email, tx.Amount.String(), string(tx.Type), tx.Category, tx.Date.String(), extra)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "type", tx.Type, "category", tx.Category)
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Transaction, error) {
	return getTx(ctx, r.db, id)
}

func (r *Repository) ListByOwner(ctx context.Context, email string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transactions WHERE email = ? ORDER BY rowid`, email)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Update reads, merges and writes in one SQL transaction so concurrent
// patches of the same record do not interleave.
func (r *Repository) Update(ctx context.Context, id string, patch core.TransactionPatch) (int64, error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update: %w", err)
	}
	defer sqlTx.Rollback()

	before, err := getTx(ctx, sqlTx, id)
	if err != nil {
		return 0, err
	}
	after := before.Apply(patch)

	extra, err := encodeExtra(after.Extra)
	if err != nil {
		return 0, err
	}
	prevExtra, err := encodeExtra(before.Extra)
	if err != nil {
		return 0, err
	}
	if sameRow(before, after) && prevExtra == extra {
		return 0, nil
	}

	res, err := sqlTx.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, type = ?, category = ?, date = ?, extra = ? WHERE id = ?`,
		after.Amount.String(), string(after.Type), after.Category, after.Date.String(), extra, id)
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	return n, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) SumCategoryType(ctx context.Context, email, category string, typ core.TransactionType) (core.Money, error) {
	spellings := typ.StoredSpellings()
	args := []any{email, category}
	for _, s := range spellings {
		args = append(args, s)
	}
	q := `SELECT COALESCE(group_concat(amount, ' '), '') FROM transactions WHERE email = ? AND category = ? AND lower(type) IN (` +
		placeholders(len(spellings)) + `)`

	var amounts string
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&amounts); err != nil {
		return core.Money{}, fmt.Errorf("sum category type: %w", err)
	}
	return sumAmounts(amounts), nil
}

func (r *Repository) SumByType(ctx context.Context, email string) ([]core.TypeTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+typeExpr+` AS t, group_concat(amount, ' ') FROM transactions WHERE email = ? GROUP BY t ORDER BY MIN(rowid)`, email)
	if err != nil {
		return nil, fmt.Errorf("sum by type: %w", err)
	}
	defer rows.Close()

	var out []core.TypeTotal
	for rows.Next() {
		var (
			typ     string
			amounts string
		)
		if err := rows.Scan(&typ, &amounts); err != nil {
			return nil, fmt.Errorf("scan type total: %w", err)
		}
		out = append(out, core.TypeTotal{Type: core.TransactionType(typ), Total: sumAmounts(amounts)})
	}
	return out, rows.Err()
}

func (r *Repository) SumByCategory(ctx context.Context, email string) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, group_concat(amount, ' ') FROM transactions WHERE email = ? GROUP BY category ORDER BY MIN(rowid)`, email)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	out := make([]core.CategoryAmount, 0)
	for rows.Next() {
		var (
			name    string
			amounts string
		)
		if err := rows.Scan(&name, &amounts); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, core.CategoryAmount{Name: name, Value: sumAmounts(amounts)})
	}
	return out, rows.Err()
}

func (r *Repository) SumByMonth(ctx context.Context, email string) ([]core.MonthTypeTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m, t, group_concat(amount, ' ') FROM (
			SELECT CAST(strftime('%m', date) AS INTEGER) AS m, `+typeExpr+` AS t, amount
			FROM transactions WHERE email = ?
		) WHERE m IS NOT NULL GROUP BY m, t ORDER BY m`, email)
	if err != nil {
		return nil, fmt.Errorf("sum by month: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTypeTotal
	for rows.Next() {
		var (
			month   int
			typ     string
			amounts string
		)
		if err := rows.Scan(&month, &typ, &amounts); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		out = append(out, core.MonthTypeTotal{Month: month, Type: core.TransactionType(typ), Total: sumAmounts(amounts)})
	}
	return out, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getTx(ctx context.Context, q queryer, id string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, err
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx     core.Transaction
		amount string
		typ    string
		date   string
		extra  string
	)
	if err := s.Scan(&tx.ID, &tx.Email, &amount, &typ, &tx.Category, &date, &extra); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	if m, err := core.ParseMoney(amount); err == nil {
		tx.Amount = m
	}
	tx.Type = core.NormalizeType(typ)
	if d, err := core.ParseDate(date); err == nil {
		tx.Date = d
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &tx.Extra); err != nil {
			return tx, fmt.Errorf("decode extra fields of %s: %w", tx.ID, err)
		}
	}
	return tx, nil
}

func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("encode extra fields: %w", err)
	}
	return string(b), nil
}

// sumAmounts adds the space-separated amounts built by group_concat. Amounts
// are stored as decimal text and summed here so totals stay exact; values
// that do not parse count as 0.
func sumAmounts(list string) core.Money {
	var total core.Money
	for _, s := range strings.Fields(list) {
		if m, err := core.ParseMoney(s); err == nil {
			total = total.Add(m)
		}
	}
	return total
}

// sameRow compares the typed columns only.
func sameRow(a, b core.Transaction) bool {
	return a.Amount.Equal(b.Amount) && a.Type == b.Type && a.Category == b.Category && a.Date.Equal(b.Date.Time)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
