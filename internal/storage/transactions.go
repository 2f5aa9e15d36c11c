package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const transactionColumns = `id, user_id, amount, type, category, description, date, source,
	recurring_rule_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		amount, kind, source string
		date, created        string
		updated              string
		ruleID               sql.NullString
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &amount, &kind, &t.Category, &t.Description,
		&date, &source, &ruleID, &created, &updated); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.Amount, err = parseAmount(amount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	t.Source = core.Source(source)
	if ruleID.Valid {
		id := ruleID.String
		t.RecurringRuleID = &id
	}
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := storable(t.Date, t.CreatedAt, t.UpdatedAt); err != nil {
		return err
	}
	var ruleID sql.NullString
	if t.RecurringRuleID != nil {
		ruleID = sql.NullString{String: *t.RecurringRuleID, Valid: true}
	}
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Amount.StringFixed(core.AmountScale), string(t.Kind), t.Category, t.Description,
		formatTime(t.Date), string(t.Source), ruleID, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.q(ctx).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, mapError(err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f services.TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{ownerID}
	)
	if f.From != nil && f.To != nil {
		where = append(where, "date >= ?", "date <= ?")
		args = append(args, formatTime(*f.From), formatTime(*f.To))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Kind != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Kind))
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return scanTransactions(rows)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := storable(t.Date, t.UpdatedAt); err != nil {
		return err
	}
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, type = ?, category = ?, description = ?, date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		t.Amount.StringFixed(core.AmountScale), string(t.Kind), t.Category, t.Description,
		formatTime(t.Date), formatTime(t.UpdatedAt), t.ID, t.OwnerID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", mapError(err))
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.q(ctx).ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) TopCategories(ctx context.Context, ownerID string, kind core.Kind, limit int) ([]core.CategorySuggestion, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT category, COUNT(*) AS uses
		FROM transactions
		WHERE user_id = ? AND type = ?
		GROUP BY category
		ORDER BY uses DESC, category ASC
		LIMIT ?`, ownerID, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	defer rows.Close()

	out := []core.CategorySuggestion{}
	for rows.Next() {
		var s core.CategorySuggestion
		if err := rows.Scan(&s.Category, &s.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CategoryUsage(ctx context.Context, ownerID string, kind core.Kind) ([]core.CategoryUsage, error) {
	query := `SELECT category, type, COUNT(*) AS uses FROM transactions WHERE user_id = ?`
	args := []any{ownerID}
	if kind != "" {
		query += ` AND type = ?`
		args = append(args, string(kind))
	}
	query += ` GROUP BY category, type ORDER BY uses DESC, category ASC`

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category usage: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryUsage{}
	for rows.Next() {
		var (
			u core.CategoryUsage
			k string
		)
		if err := rows.Scan(&u.Category, &k, &u.Count); err != nil {
			return nil, fmt.Errorf("scan category usage: %w", err)
		}
		u.Kind = core.Kind(k)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListTransactionsSince returns the owner's transactions dated on or after from.
func (r *SQLiteRepository) ListTransactionsSince(ctx context.Context, ownerID string, from time.Time) ([]core.Transaction, error) {
	rows, err := r.q(ctx).QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND date >= ? ORDER BY date ASC`,
		ownerID, formatTime(from))
	if err != nil {
		return nil, fmt.Errorf("query transactions since: %w", err)
	}
	return scanTransactions(rows)
}
