package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const userColumns = `id, email, password_hash, google_id, name, first_name, last_name,
	auth_provider, created_at, updated_at`

func scanUser(row rowScanner) (core.User, error) {
	var (
		u                         core.User
		provider, created, update string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.GoogleID, &u.Name, &u.FirstName,
		&u.LastName, &provider, &created, &update); err != nil {
		return core.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, err
	}
	if u.UpdatedAt, err = parseTime(update); err != nil {
		return core.User{}, err
	}
	u.AuthProvider = core.AuthProvider(provider)
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.GoogleID, u.Name, u.FirstName, u.LastName,
		string(u.AuthProvider), formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.q(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, mapError(err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.q(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return core.User{}, mapError(err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.q(ctx).ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, google_id = ?, name = ?, first_name = ?, last_name = ?,
		    auth_provider = ?, updated_at = ?
		WHERE id = ?`,
		u.PasswordHash, u.GoogleID, u.Name, u.FirstName, u.LastName,
		string(u.AuthProvider), formatTime(u.UpdatedAt), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", mapError(err))
	}
	return requireAffected(res)
}

// DeleteUser removes the user. Foreign keys cascade to transactions, rules
// and favorites.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}
