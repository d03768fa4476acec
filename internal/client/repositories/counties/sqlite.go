package counties

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

const selectCounty = `SELECT id, name, state, created_at, updated_at FROM counties`

func scanCounty(s dbx.Scanner) (*models.County, error) {
	var (
		c                models.County
		created, updated int64
	)
	if err := s.Scan(&c.ID, &c.Name, &c.State, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = dbx.IntToTime(created)
	c.UpdatedAt = dbx.IntToTime(updated)
	return &c, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.County) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO counties (id, name, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, c.State, dbx.TimeToInt(c.CreatedAt), dbx.TimeToInt(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert county %d: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.County, error) {
	rows, err := r.db.QueryContext(ctx, selectCounty+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select counties: %w", err)
	}
	defer rows.Close()

	result := []models.County{}
	for rows.Next() {
		c, err := scanCounty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan county: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counties: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.County, error) {
	c, err := scanCounty(r.db.QueryRowContext(ctx, selectCounty+` WHERE id = ?`, id))
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get county %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM counties WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete county %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM counties`); err != nil {
		return fmt.Errorf("failed to delete counties: %w", err)
	}
	return nil
}
