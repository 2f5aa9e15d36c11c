package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"
)

const favoriteColumns = `id, user_id, category, emoji, type, sort_order, created_at`

func scanFavorite(row rowScanner) (core.FavoriteCategory, error) {
	var (
		f             core.FavoriteCategory
		kind, created string
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.Category, &f.Emoji, &kind, &f.Order, &created); err != nil {
		return core.FavoriteCategory{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.FavoriteCategory{}, err
	}
	f.CreatedAt = t
	f.Kind = core.Kind(kind)
	return f, nil
}

func (r *SQLiteRepository) ListFavorites(ctx context.Context, ownerID string, kind core.Kind) ([]core.FavoriteCategory, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorite_categories WHERE user_id = ?`
	args := []any{ownerID}
	if kind != "" {
		query += ` AND type = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	out := []core.FavoriteCategory{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountFavorites(ctx context.Context, ownerID string, kind core.Kind) (int, error) {
	var n int
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorite_categories WHERE user_id = ? AND type = ?`,
		ownerID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) FindFavorite(ctx context.Context, ownerID, category string, kind core.Kind) (core.FavoriteCategory, error) {
	row := r.q(ctx).QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorite_categories WHERE user_id = ? AND category = ? AND type = ?`,
		ownerID, category, string(kind))
	f, err := scanFavorite(row)
	if err != nil {
		return core.FavoriteCategory{}, mapError(err)
	}
	return f, nil
}

func (r *SQLiteRepository) MaxFavoriteOrder(ctx context.Context, ownerID string, kind core.Kind) (int, bool, error) {
	var top sql.NullInt64
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT MAX(sort_order) FROM favorite_categories WHERE user_id = ? AND type = ?`,
		ownerID, string(kind)).Scan(&top)
	if err != nil {
		return 0, false, fmt.Errorf("max favorite order: %w", err)
	}
	if !top.Valid {
		return 0, false, nil
	}
	return int(top.Int64), true, nil
}

func (r *SQLiteRepository) CreateFavorite(ctx context.Context, f core.FavoriteCategory) error {
	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO favorite_categories (`+favoriteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.Category, f.Emoji, string(f.Kind), f.Order, formatTime(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert favorite: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) GetFavorite(ctx context.Context, id string) (core.FavoriteCategory, error) {
	row := r.q(ctx).QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorite_categories WHERE id = ?`, id)
	f, err := scanFavorite(row)
	if err != nil {
		return core.FavoriteCategory{}, mapError(err)
	}
	return f, nil
}

func (r *SQLiteRepository) UpdateFavorite(ctx context.Context, f core.FavoriteCategory) error {
	res, err := r.q(ctx).ExecContext(ctx,
		`UPDATE favorite_categories SET emoji = ?, sort_order = ? WHERE id = ?`,
		f.Emoji, f.Order, f.ID)
	if err != nil {
		return fmt.Errorf("update favorite: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteFavorite(ctx context.Context, id string) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM favorite_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return requireAffected(res)
}
