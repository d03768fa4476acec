package checklist

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

const selectItem = `SELECT id, county_id, title, description, required, order_index, created_at, updated_at
	FROM checklist_items`

func scanItem(s dbx.Scanner) (*models.ChecklistItem, error) {
	var (
		it               models.ChecklistItem
		required         int
		created, updated int64
	)
	if err := s.Scan(&it.ID, &it.CountyID, &it.Title, &it.Description, &required,
		&it.OrderIndex, &created, &updated); err != nil {
		return nil, err
	}
	it.Required = required != 0
	it.CreatedAt = dbx.IntToTime(created)
	it.UpdatedAt = dbx.IntToTime(updated)
	return &it, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, it *models.ChecklistItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checklist_items (id, county_id, title, description, required, order_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			county_id = excluded.county_id,
			title = excluded.title,
			description = excluded.description,
			required = excluded.required,
			order_index = excluded.order_index,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, it.ID, it.CountyID, it.Title, it.Description, dbx.BoolToInt(it.Required), it.OrderIndex,
		dbx.TimeToInt(it.CreatedAt), dbx.TimeToInt(it.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert checklist item %d: %w", it.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByCounty(ctx context.Context, countyID int64) ([]models.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx, selectItem+` WHERE county_id = ? ORDER BY order_index, id`, countyID)
	if err != nil {
		return nil, fmt.Errorf("failed to select checklist of county %d: %w", countyID, err)
	}
	defer rows.Close()

	result := []models.ChecklistItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checklist items: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.ChecklistItem, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, selectItem+` WHERE id = ?`, id))
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist item %d: %w", id, err)
	}
	return it, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM checklist_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete checklist item %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCounty(ctx context.Context, countyID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM checklist_items WHERE county_id = ?`, countyID); err != nil {
		return fmt.Errorf("failed to delete checklist of county %d: %w", countyID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM checklist_items
		WHERE county_id NOT IN (SELECT id FROM counties)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned checklist items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM checklist_items`); err != nil {
		return fmt.Errorf("failed to delete checklist items: %w", err)
	}
	return nil
}
