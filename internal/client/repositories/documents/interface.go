// Package documents caches the documents attached to permit packages.
package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, d *models.PermitDocument) error
	// UpsertUnlessPending leaves rows flagged pending_sync untouched and
	// reports whether a row was written.
	UpsertUnlessPending(ctx context.Context, d *models.PermitDocument) (bool, error)
	// GetByPackage returns documents in upload order.
	GetByPackage(ctx context.Context, packageID int64) ([]models.PermitDocument, error)
	// GetByID returns nil when the document is not cached.
	GetByID(ctx context.Context, id int64) (*models.PermitDocument, error)
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	// ReassignPackage moves every document of oldID to newID.
	ReassignPackage(ctx context.Context, oldID, newID int64) error
	Delete(ctx context.Context, id int64) error
	DeleteByPackage(ctx context.Context, packageID int64) error
	DeleteSyncedByPackage(ctx context.Context, packageID int64) error
	// DeleteOrphans removes documents whose package is no longer cached.
	DeleteOrphans(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}
