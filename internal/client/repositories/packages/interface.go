// Package packages persists the user's permit packages, including the
// provisional rows created while offline.
package packages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Repository interface {
	// Upsert inserts or overwrites p. A nil LastSyncedAt keeps the stored value.
	Upsert(ctx context.Context, p *models.PermitPackage) error
	// UpsertUnlessPending behaves like Upsert but leaves rows flagged
	// pending_sync untouched. It reports whether a row was written.
	UpsertUnlessPending(ctx context.Context, p *models.PermitPackage) (bool, error)
	// GetByID returns nil when the package is not cached.
	GetByID(ctx context.Context, id int64) (*models.PermitPackage, error)
	// GetByUser returns the user's packages, newest first.
	GetByUser(ctx context.Context, userID int64) ([]models.PermitPackage, error)
	SetStatus(ctx context.Context, id int64, status models.PackageStatus, pending bool, at time.Time) error
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	ChangeID(ctx context.Context, oldID, newID int64) error
	Delete(ctx context.Context, id int64) error
	// DeleteSyncedByUser removes the user's packages that have no unsynced
	// local changes.
	DeleteSyncedByUser(ctx context.Context, userID int64) error
	DeleteAll(ctx context.Context) error
}
