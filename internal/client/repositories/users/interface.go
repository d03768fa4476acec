// Package users persists the currently signed-in user. The table holds at
// most one row.
package users

import (
	"context"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Repository interface {
	// Replace makes u the only cached user.
	Replace(ctx context.Context, u *models.User) error
	// Current returns nil when nobody is cached.
	Current(ctx context.Context) (*models.User, error)
	Clear(ctx context.Context) error
}
