// Package counties caches the jurisdiction reference list.
package counties

import (
	"context"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, c *models.County) error
	// GetAll returns counties ordered by name.
	GetAll(ctx context.Context) ([]models.County, error)
	// GetByID returns nil when the county is not cached.
	GetByID(ctx context.Context, id int64) (*models.County, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}
