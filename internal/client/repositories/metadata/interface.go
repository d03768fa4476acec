// Package metadata stores small key/value settings of the local store: the
// auth token, the last successful sync time and the provisional id counter.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
