package packages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectPackage = `SELECT id, user_id, county_id, name, description, status,
	customer_name, customer_email, customer_phone, customer_company, customer_license,
	site_address, site_city, site_state, site_zip, site_county,
	created_at, updated_at, pending_sync, last_synced_at, client_ref
	FROM permit_packages`

const upsertPackage = `
	INSERT INTO permit_packages (id, user_id, county_id, name, description, status,
		customer_name, customer_email, customer_phone, customer_company, customer_license,
		site_address, site_city, site_state, site_zip, site_county,
		created_at, updated_at, pending_sync, last_synced_at, client_ref)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		county_id = excluded.county_id,
		name = excluded.name,
		description = excluded.description,
		status = excluded.status,
		customer_name = excluded.customer_name,
		customer_email = excluded.customer_email,
		customer_phone = excluded.customer_phone,
		customer_company = excluded.customer_company,
		customer_license = excluded.customer_license,
		site_address = excluded.site_address,
		site_city = excluded.site_city,
		site_state = excluded.site_state,
		site_zip = excluded.site_zip,
		site_county = excluded.site_county,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		pending_sync = excluded.pending_sync,
		last_synced_at = COALESCE(excluded.last_synced_at, permit_packages.last_synced_at),
		client_ref = COALESCE(excluded.client_ref, permit_packages.client_ref)`

func scanPackage(s dbx.Scanner) (*models.PermitPackage, error) {
	var (
		p                models.PermitPackage
		desc, clientRef  sql.NullString
		status           string
		created, updated int64
		pending          int
		lastSynced       sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.UserID, &p.CountyID, &p.Name, &desc, &status,
		&p.Customer.Name, &p.Customer.Email, &p.Customer.Phone, &p.Customer.Company, &p.Customer.License,
		&p.Site.Address, &p.Site.City, &p.Site.State, &p.Site.Zip, &p.Site.County,
		&created, &updated, &pending, &lastSynced, &clientRef)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	p.Status = models.PackageStatus(status)
	p.CreatedAt = dbx.IntToTime(created)
	p.UpdatedAt = dbx.IntToTime(updated)
	p.PendingSync = pending != 0
	p.LastSyncedAt = dbx.TimePtr(lastSynced)
	p.ClientRef = clientRef.String
	return &p, nil
}

func upsertArgs(p *models.PermitPackage) []any {
	var desc, clientRef sql.NullString
	if p.Description != nil {
		desc = sql.NullString{String: *p.Description, Valid: true}
	}
	if p.ClientRef != "" {
		clientRef = sql.NullString{String: p.ClientRef, Valid: true}
	}
	return []any{p.ID, p.UserID, p.CountyID, p.Name, desc, string(p.Status),
		p.Customer.Name, p.Customer.Email, p.Customer.Phone, p.Customer.Company, p.Customer.License,
		p.Site.Address, p.Site.City, p.Site.State, p.Site.Zip, p.Site.County,
		dbx.TimeToInt(p.CreatedAt), dbx.TimeToInt(p.UpdatedAt), dbx.BoolToInt(p.PendingSync),
		dbx.NullTime(p.LastSyncedAt), clientRef}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.PermitPackage) error {
	if _, err := r.db.ExecContext(ctx, upsertPackage, upsertArgs(p)...); err != nil {
		return fmt.Errorf("failed to upsert package %d: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertUnlessPending(ctx context.Context, p *models.PermitPackage) (bool, error) {
	res, err := r.db.ExecContext(ctx, upsertPackage+`
		WHERE permit_packages.pending_sync = 0`, upsertArgs(p)...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert package %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.PermitPackage, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, selectPackage+` WHERE id = ?`, id))
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByUser(ctx context.Context, userID int64) ([]models.PermitPackage, error) {
	rows, err := r.db.QueryContext(ctx, selectPackage+` WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select packages of user %d: %w", userID, err)
	}
	defer rows.Close()

	result := []models.PermitPackage{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}
	return result, nil
}

// SetStatus patches the status. It expects exactly one row to be affected.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id int64, status models.PackageStatus, pending bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE permit_packages SET status = ?, pending_sync = ?, updated_at = ? WHERE id = ?
	`, string(status), dbx.BoolToInt(pending), dbx.TimeToInt(at), id)
	if err != nil {
		return fmt.Errorf("failed to set status of package %d: %w", id, err)
	}
	return expectOne(res, id)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE permit_packages SET pending_sync = 0, last_synced_at = ? WHERE id = ?
	`, dbx.TimeToInt(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark package %d synced: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ChangeID(ctx context.Context, oldID, newID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE permit_packages SET id = ? WHERE id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to change package id %d -> %d: %w", oldID, newID, err)
	}
	return expectOne(res, oldID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM permit_packages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete package %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSyncedByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM permit_packages WHERE user_id = ? AND pending_sync = 0`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete synced packages of user %d: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM permit_packages`); err != nil {
		return fmt.Errorf("failed to delete packages: %w", err)
	}
	return nil
}

// ErrNoRow is returned by single-row updates that matched nothing.
var ErrNoRow = errors.New("package not found")

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("package %d: %w", id, ErrNoRow)
	}
	return nil
}
