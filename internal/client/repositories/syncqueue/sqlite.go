package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/dbx"
)

var ErrMissingIdempotencyKey = errors.New("queue entry has no idempotency key")

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectEntry = `SELECT id, entity_type, entity_id, parent_id, operation, payload, idempotency_key,
	created_at, retry_count, last_attempt_at, last_error, state
	FROM sync_queue`

func scanEntry(s dbx.Scanner) (*models.SyncQueueEntry, error) {
	var (
		e                  models.SyncQueueEntry
		entityType, op, st string
		parent             sql.NullInt64
		payload            []byte
		created            int64
		lastAttempt        sql.NullInt64
	)
	err := s.Scan(&e.ID, &entityType, &e.EntityID, &parent, &op, &payload, &e.IdempotencyKey,
		&created, &e.RetryCount, &lastAttempt, &e.LastError, &st)
	if err != nil {
		return nil, err
	}
	e.EntityType = models.EntityType(entityType)
	e.Operation = models.Operation(op)
	e.State = models.QueueState(st)
	if parent.Valid {
		v := parent.Int64
		e.ParentID = &v
	}
	if payload != nil {
		e.Payload = append([]byte(nil), payload...)
	}
	e.CreatedAt = dbx.IntToTime(created)
	e.LastAttemptAt = dbx.TimePtr(lastAttempt)
	return &e, nil
}

func (r *SQLiteRepository) list(ctx context.Context, state models.QueueState) ([]models.SyncQueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntry+` WHERE state = ? ORDER BY created_at, id`, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to select %s queue entries: %w", state, err)
	}
	defer rows.Close()

	result := []models.SyncQueueEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.SyncQueueEntry) error {
	if e.IdempotencyKey == "" {
		return ErrMissingIdempotencyKey
	}
	state := e.State
	if state == "" {
		state = models.QueuePending
	}
	var parent sql.NullInt64
	if e.ParentID != nil {
		parent = sql.NullInt64{Int64: *e.ParentID, Valid: true}
	}
	var payload []byte
	if len(e.Payload) > 0 {
		payload = []byte(e.Payload)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (entity_type, entity_id, parent_id, operation, payload, idempotency_key,
			created_at, retry_count, last_attempt_at, last_error, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(e.EntityType), e.EntityID, parent, string(e.Operation), payload, e.IdempotencyKey,
		dbx.TimeToInt(e.CreatedAt), e.RetryCount, dbx.NullTime(e.LastAttemptAt), e.LastError, string(state))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s %s %d: %w", e.Operation, e.EntityType, e.EntityID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get queue entry id: %w", err)
	}
	e.ID = id
	e.State = state
	return nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return r.list(ctx, models.QueuePending)
}

func (r *SQLiteRepository) ListDead(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return r.list(ctx, models.QueueDead)
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.SyncQueueEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
	if dbx.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) RecordAttempt(ctx context.Context, id int64, retryCount int, at time.Time, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET retry_count = ?, last_attempt_at = ?, last_error = ? WHERE id = ?
	`, retryCount, dbx.TimeToInt(at), lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to record attempt of queue entry %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) SetState(ctx context.Context, id int64, state models.QueueState) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return fmt.Errorf("failed to set state of queue entry %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Revive(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET state = ?, retry_count = 0, last_error = '' WHERE id = ? AND state = ?
	`, string(models.QueuePending), id, string(models.QueueDead))
	if err != nil {
		return fmt.Errorf("failed to revive queue entry %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove queue entry %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) RemapEntity(ctx context.Context, entityType models.EntityType, oldID, newID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET entity_id = ? WHERE entity_type = ? AND entity_id = ?
	`, newID, string(entityType), oldID)
	if err != nil {
		return fmt.Errorf("failed to remap queued %s %d -> %d: %w", entityType, oldID, newID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemapParent(ctx context.Context, oldID, newID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET parent_id = ? WHERE parent_id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to remap queued parent %d -> %d: %w", oldID, newID, err)
	}
	return nil
}

func (r *SQLiteRepository) EntityIDs(ctx context.Context, entityType models.EntityType, op models.Operation) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT entity_id FROM sync_queue
		WHERE entity_type = ? AND operation = ? AND state = ?
	`, string(entityType), string(op), string(models.QueuePending))
	if err != nil {
		return nil, fmt.Errorf("failed to select queued %s ids: %w", entityType, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queued id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queued ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, state models.QueueState) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE state = ?`, string(state)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s queue entries: %w", state, err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountForEntity(ctx context.Context, entityType models.EntityType, id int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_queue WHERE entity_type = ? AND entity_id = ? AND state = ?
	`, string(entityType), id, string(models.QueuePending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued %s %d: %w", entityType, id, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("failed to clear sync queue: %w", err)
	}
	return nil
}
