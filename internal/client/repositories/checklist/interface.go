// Package checklist caches the document requirements of each county.
package checklist

import (
	"context"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, item *models.ChecklistItem) error
	// GetByCounty returns the county's items in ascending order index.
	GetByCounty(ctx context.Context, countyID int64) ([]models.ChecklistItem, error)
	// GetByID returns nil when the item is not cached.
	GetByID(ctx context.Context, id int64) (*models.ChecklistItem, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCounty(ctx context.Context, countyID int64) error
	// DeleteOrphans removes items whose county is no longer cached.
	DeleteOrphans(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}
