// Package syncqueue is the durable FIFO log of local mutations awaiting
// remote application. Entries that exhausted their retries are kept in the
// same table with state "dead".
package syncqueue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Repository interface {
	// Enqueue appends e and sets its ID.
	Enqueue(ctx context.Context, e *models.SyncQueueEntry) error
	// ListPending returns live entries in creation order.
	ListPending(ctx context.Context) ([]models.SyncQueueEntry, error)
	ListDead(ctx context.Context) ([]models.SyncQueueEntry, error)
	// Get returns nil when the entry does not exist.
	Get(ctx context.Context, id int64) (*models.SyncQueueEntry, error)
	RecordAttempt(ctx context.Context, id int64, retryCount int, at time.Time, lastErr string) error
	SetState(ctx context.Context, id int64, state models.QueueState) error
	// Revive moves a dead entry back to pending with a fresh retry budget.
	Revive(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) error
	// RemapEntity rewrites entity_id for entries of the given type.
	RemapEntity(ctx context.Context, entityType models.EntityType, oldID, newID int64) error
	RemapParent(ctx context.Context, oldID, newID int64) error
	// EntityIDs returns the ids targeted by live entries of the given kind.
	EntityIDs(ctx context.Context, entityType models.EntityType, op models.Operation) ([]int64, error)
	Count(ctx context.Context, state models.QueueState) (int, error)
	// CountForEntity counts live entries targeting one entity.
	CountForEntity(ctx context.Context, entityType models.EntityType, id int64) (int, error)
	Clear(ctx context.Context) error
}
