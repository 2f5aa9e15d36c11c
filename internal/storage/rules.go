package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const ruleColumns = `id, user_id, amount, type, category, description, frequency, interval_count,
	start_date, end_date, next_run, is_active, created_at, updated_at`

func scanRule(row rowScanner) (core.RecurringRule, error) {
	var (
		rule                    core.RecurringRule
		amount, kind, frequency string
		start, next             string
		created, updated        string
		end                     sql.NullString
		active                  int
	)
	if err := row.Scan(&rule.ID, &rule.OwnerID, &amount, &kind, &rule.Category, &rule.Description,
		&frequency, &rule.Interval, &start, &end, &next, &active, &created, &updated); err != nil {
		return core.RecurringRule{}, err
	}

	var err error
	if rule.Amount, err = parseAmount(amount); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.StartDate, err = parseTime(start); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.EndDate, err = parseNullTime(end); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.NextRun, err = parseTime(next); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.CreatedAt, err = parseTime(created); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.UpdatedAt, err = parseTime(updated); err != nil {
		return core.RecurringRule{}, err
	}
	rule.Kind = core.Kind(kind)
	rule.Frequency = core.Frequency(frequency)
	rule.IsActive = active != 0
	return rule, nil
}

func scanRules(rows *sql.Rows) ([]core.RecurringRule, error) {
	defer rows.Close()
	out := []core.RecurringRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func storableRule(rule core.RecurringRule) error {
	ts := []time.Time{rule.StartDate, rule.NextRun, rule.CreatedAt, rule.UpdatedAt}
	if rule.EndDate != nil {
		ts = append(ts, *rule.EndDate)
	}
	return storable(ts...)
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) error {
	if err := storableRule(rule); err != nil {
		return err
	}
	_, err := r.q(ctx).ExecContext(ctx, `
		INSERT INTO recurring_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.OwnerID, rule.Amount.StringFixed(core.AmountScale), string(rule.Kind),
		rule.Category, rule.Description, string(rule.Frequency), rule.Interval,
		formatTime(rule.StartDate), formatNullTime(rule.EndDate), formatTime(rule.NextRun),
		boolToInt(rule.IsActive), formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert recurring rule: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) GetRule(ctx context.Context, id string) (core.RecurringRule, error) {
	row := r.q(ctx).QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err != nil {
		return core.RecurringRule{}, mapError(err)
	}
	return rule, nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context, ownerID string) ([]core.RecurringRule, error) {
	rows, err := r.q(ctx).QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE user_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query recurring rules: %w", err)
	}
	return scanRules(rows)
}

func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.RecurringRule) error {
	if err := storableRule(rule); err != nil {
		return err
	}
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE recurring_rules
		SET amount = ?, category = ?, description = ?, frequency = ?, interval_count = ?,
		    end_date = ?, next_run = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		rule.Amount.StringFixed(core.AmountScale), rule.Category, rule.Description,
		string(rule.Frequency), rule.Interval, formatNullTime(rule.EndDate), formatTime(rule.NextRun),
		boolToInt(rule.IsActive), formatTime(rule.UpdatedAt), rule.ID)
	if err != nil {
		return fmt.Errorf("update recurring rule: %w", mapError(err))
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return requireAffected(res)
}

// FindDueRules returns the owner's active rules with next_run <= now whose
// end date, if any, has not passed.
func (r *SQLiteRepository) FindDueRules(ctx context.Context, ownerID string, now time.Time) ([]core.RecurringRule, error) {
	ts := formatTime(now)
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM recurring_rules
		WHERE user_id = ?
		  AND is_active = 1
		  AND next_run <= ?
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY next_run ASC, id ASC`, ownerID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("query due rules: %w", err)
	}
	return scanRules(rows)
}

// AdvanceRule moves a rule to its next occurrence if no one else did first.
func (r *SQLiteRepository) AdvanceRule(ctx context.Context, id string, observed, next time.Time, isActive bool, updatedAt time.Time) (bool, error) {
	if err := storable(next, updatedAt); err != nil {
		return false, err
	}
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE recurring_rules
		SET next_run = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND next_run = ?`,
		formatTime(next), boolToInt(isActive), formatTime(updatedAt), id, formatTime(observed))
	if err != nil {
		return false, fmt.Errorf("advance recurring rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// OwnersWithDueRules lists users with at least one due active rule.
func (r *SQLiteRepository) OwnersWithDueRules(ctx context.Context, now time.Time) ([]string, error) {
	ts := formatTime(now)
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT DISTINCT user_id
		FROM recurring_rules
		WHERE is_active = 1
		  AND next_run <= ?
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY user_id`, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("query owners with due rules: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
