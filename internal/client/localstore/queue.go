package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/google/uuid"
)

// Enqueue appends a mutation to the sync queue. Missing creation time and
// idempotency key are filled in.
func (s *Store) Enqueue(ctx context.Context, e *models.SyncQueueEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.IdempotencyKey == "" {
		e.IdempotencyKey = uuid.NewString()
	}
	return s.r.queue.Enqueue(ctx, e)
}

// ListPending returns live queue entries oldest first.
func (s *Store) ListPending(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return s.r.queue.ListPending(ctx)
}

// ListDead returns entries that exhausted their retries.
func (s *Store) ListDead(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return s.r.queue.ListDead(ctx)
}

func (s *Store) QueueEntry(ctx context.Context, id int64) (*models.SyncQueueEntry, error) {
	e, err := s.r.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("queue entry %d: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *Store) RecordAttempt(ctx context.Context, id int64, retryCount int, at time.Time, lastErr string) error {
	return s.r.queue.RecordAttempt(ctx, id, retryCount, at, lastErr)
}

// MarkDead records the final attempt and moves the entry to the dead letters.
func (s *Store) MarkDead(ctx context.Context, id int64, retryCount int, at time.Time, lastErr string) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.queue.RecordAttempt(ctx, id, retryCount, at, lastErr); err != nil {
			return err
		}
		return r.queue.SetState(ctx, id, models.QueueDead)
	})
}

// Revive puts a dead entry back at its original place in the queue.
func (s *Store) Revive(ctx context.Context, id int64) error {
	e, err := s.QueueEntry(ctx, id)
	if err != nil {
		return err
	}
	if e.State != models.QueueDead {
		return fmt.Errorf("queue entry %d is %s, not dead", id, e.State)
	}
	return s.r.queue.Revive(ctx, id)
}

// CompleteEntry removes a successfully replayed entry and marks its entity
// synced once nothing else is queued for it.
func (s *Store) CompleteEntry(ctx context.Context, e *models.SyncQueueEntry, at time.Time) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.queue.Remove(ctx, e.ID); err != nil {
			return err
		}
		if e.Operation == models.OpDelete {
			return nil
		}
		return markSyncedIfSettled(ctx, r, e.EntityType, e.EntityID, at)
	})
}

func (s *Store) RemoveEntry(ctx context.Context, id int64) error {
	return s.r.queue.Remove(ctx, id)
}

func (s *Store) PendingCount(ctx context.Context) (int, error) {
	return s.r.queue.Count(ctx, models.QueuePending)
}

func (s *Store) DeadCount(ctx context.Context) (int, error) {
	return s.r.queue.Count(ctx, models.QueueDead)
}
