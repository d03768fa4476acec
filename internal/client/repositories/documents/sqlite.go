package documents

import (
	"context"
	"database/sql"
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

const selectDocument = `SELECT id, package_id, checklist_item_id, file_name, file_url, file_size, mime_type,
	uploaded_at, approval_status, reviewed_by, reviewed_at, review_notes,
	pending_sync, last_synced_at, local_file_path
	FROM permit_documents`

const upsertDocument = `
	INSERT INTO permit_documents (id, package_id, checklist_item_id, file_name, file_url, file_size, mime_type,
		uploaded_at, approval_status, reviewed_by, reviewed_at, review_notes,
		pending_sync, last_synced_at, local_file_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		package_id = excluded.package_id,
		checklist_item_id = excluded.checklist_item_id,
		file_name = excluded.file_name,
		file_url = excluded.file_url,
		file_size = excluded.file_size,
		mime_type = excluded.mime_type,
		uploaded_at = excluded.uploaded_at,
		approval_status = excluded.approval_status,
		reviewed_by = excluded.reviewed_by,
		reviewed_at = excluded.reviewed_at,
		review_notes = excluded.review_notes,
		pending_sync = excluded.pending_sync,
		last_synced_at = COALESCE(excluded.last_synced_at, permit_documents.last_synced_at),
		local_file_path = CASE WHEN excluded.local_file_path = '' THEN permit_documents.local_file_path
			ELSE excluded.local_file_path END`

func scanDocument(s dbx.Scanner) (*models.PermitDocument, error) {
	var (
		d                      models.PermitDocument
		approval               string
		uploaded               int64
		reviewedBy             sql.NullInt64
		reviewedAt, lastSynced sql.NullInt64
		pending                int
	)
	err := s.Scan(&d.ID, &d.PackageID, &d.ChecklistItemID, &d.FileName, &d.FileURL, &d.FileSize, &d.MimeType,
		&uploaded, &approval, &reviewedBy, &reviewedAt, &d.ReviewNotes,
		&pending, &lastSynced, &d.LocalFilePath)
	if err != nil {
		return nil, err
	}
	d.UploadedAt = dbx.IntToTime(uploaded)
	d.ApprovalStatus = models.ApprovalStatus(approval)
	if reviewedBy.Valid {
		v := reviewedBy.Int64
		d.ReviewedBy = &v
	}
	d.ReviewedAt = dbx.TimePtr(reviewedAt)
	d.PendingSync = pending != 0
	d.LastSyncedAt = dbx.TimePtr(lastSynced)
	return &d, nil
}

func upsertArgs(d *models.PermitDocument) []any {
	var reviewedBy sql.NullInt64
	if d.ReviewedBy != nil {
		reviewedBy = sql.NullInt64{Int64: *d.ReviewedBy, Valid: true}
	}
	approval := d.ApprovalStatus
	if approval == "" {
		approval = models.ApprovalPending
	}
	return []any{d.ID, d.PackageID, d.ChecklistItemID, d.FileName, d.FileURL, d.FileSize, d.MimeType,
		dbx.TimeToInt(d.UploadedAt), string(approval), reviewedBy, dbx.NullTime(d.ReviewedAt), d.ReviewNotes,
		dbx.BoolToInt(d.PendingSync), dbx.NullTime(d.LastSyncedAt), d.LocalFilePath}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, d *models.PermitDocument) error {
	if _, err := r.db.ExecContext(ctx, upsertDocument, upsertArgs(d)...); err != nil {
		return fmt.Errorf("failed to upsert document %d: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertUnlessPending(ctx context.Context, d *models.PermitDocument) (bool, error) {
	res, err := r.db.ExecContext(ctx, upsertDocument+`
		WHERE permit_documents.pending_sync = 0`, upsertArgs(d)...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert document %d: %w", d.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetByPackage(ctx context.Context, packageID int64) ([]models.PermitDocument, error) {
	rows, err := r.db.QueryContext(ctx, selectDocument+` WHERE package_id = ? ORDER BY uploaded_at, id`, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents of package %d: %w", packageID, err)
	}
	defer rows.Close()

	result := []models.PermitDocument{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.PermitDocument, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, selectDocument+` WHERE id = ?`, id))
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE permit_documents SET pending_sync = 0, last_synced_at = ? WHERE id = ?
	`, dbx.TimeToInt(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark document %d synced: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ReassignPackage(ctx context.Context, oldID, newID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE permit_documents SET package_id = ? WHERE package_id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to reassign documents %d -> %d: %w", oldID, newID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM permit_documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByPackage(ctx context.Context, packageID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM permit_documents WHERE package_id = ?`, packageID); err != nil {
		return fmt.Errorf("failed to delete documents of package %d: %w", packageID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSyncedByPackage(ctx context.Context, packageID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM permit_documents WHERE package_id = ? AND pending_sync = 0`, packageID)
	if err != nil {
		return fmt.Errorf("failed to delete synced documents of package %d: %w", packageID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM permit_documents
		WHERE package_id NOT IN (SELECT id FROM permit_packages)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned documents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM permit_documents`); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}
