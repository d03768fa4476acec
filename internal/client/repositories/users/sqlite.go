package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Replace removes any other cached user and upserts u. Callers wanting
// atomicity pass a transaction.
func (r *SQLiteRepository) Replace(ctx context.Context, u *models.User) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id <> ?`, u.ID); err != nil {
		return fmt.Errorf("failed to clear previous user: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, u.ID, u.Email, u.FirstName, u.LastName, string(u.Role),
		dbx.TimeToInt(u.CreatedAt), dbx.TimeToInt(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Current(ctx context.Context) (*models.User, error) {
	var (
		u                models.User
		role             string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, created_at, updated_at
		FROM users ORDER BY id LIMIT 1
	`).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &created, &updated)
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	u.Role = models.Role(role)
	u.CreatedAt = dbx.IntToTime(created)
	u.UpdatedAt = dbx.IntToTime(updated)
	return &u, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}
