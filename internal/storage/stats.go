package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

// Amounts are TEXT, so sums happen in Go to keep them exact.

func (r *SQLiteRepository) SumByKind(ctx context.Context, ownerID string, kind core.Kind, from time.Time) (services.KindTotal, error) {
	rows, err := r.q(ctx).QueryContext(ctx,
		`SELECT amount FROM transactions WHERE user_id = ? AND type = ? AND date >= ?`,
		ownerID, string(kind), formatTime(from))
	if err != nil {
		return services.KindTotal{}, fmt.Errorf("query amounts: %w", err)
	}
	defer rows.Close()

	total := services.KindTotal{Total: decimal.Zero}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return services.KindTotal{}, fmt.Errorf("scan amount: %w", err)
		}
		d, err := parseAmount(s)
		if err != nil {
			return services.KindTotal{}, err
		}
		total.Total = total.Total.Add(d)
		total.Count++
	}
	return total, rows.Err()
}

// SumByCategory aggregates amounts per category in first-seen order.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, ownerID string, kind core.Kind, from time.Time) ([]core.CategoryAmount, error) {
	rows, err := r.q(ctx).QueryContext(ctx, `
		SELECT category, amount FROM transactions
		WHERE user_id = ? AND type = ? AND date >= ?
		ORDER BY category`,
		ownerID, string(kind), formatTime(from))
	if err != nil {
		return nil, fmt.Errorf("query category amounts: %w", err)
	}
	defer rows.Close()

	index := map[string]int{}
	out := []core.CategoryAmount{}
	for rows.Next() {
		var category, s string
		if err := rows.Scan(&category, &s); err != nil {
			return nil, fmt.Errorf("scan category amount: %w", err)
		}
		d, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		i, ok := index[category]
		if !ok {
			i = len(out)
			index[category] = i
			out = append(out, core.CategoryAmount{Category: category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(d)
		out[i].Count++
	}
	return out, rows.Err()
}
