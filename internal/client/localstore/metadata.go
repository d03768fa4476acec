package localstore

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	keyLastSyncTime = "last_sync_time"
	keyAuthToken    = "auth_token"
	keyNextLocalID  = "next_local_id"
)

// LastSyncTime returns nil before the first successful sync.
func (s *Store) LastSyncTime(ctx context.Context) (*time.Time, error) {
	v, ok, err := s.r.metadata.Get(ctx, keyLastSyncTime)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("parse last sync time %q: %w", v, err)
	}
	return &t, nil
}

func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.r.metadata.Set(ctx, keyLastSyncTime, t.UTC().Format(time.RFC3339Nano))
}

// AuthToken returns "" when no session token is stored.
func (s *Store) AuthToken(ctx context.Context) (string, error) {
	v, _, err := s.r.metadata.Get(ctx, keyAuthToken)
	return v, err
}

func (s *Store) SetAuthToken(ctx context.Context, token string) error {
	if token == "" {
		return s.r.metadata.Delete(ctx, keyAuthToken)
	}
	return s.r.metadata.Set(ctx, keyAuthToken, token)
}

// allocateLocalID hands out the next provisional id: -1, -2, -3, ...
func allocateLocalID(ctx context.Context, r repos) (int64, error) {
	next := int64(-1)
	v, ok, err := r.metadata.Get(ctx, keyNextLocalID)
	if err != nil {
		return 0, err
	}
	if ok {
		next, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s %q: %w", keyNextLocalID, v, err)
		}
	}
	if next >= 0 {
		next = -1
	}
	if err := r.metadata.Set(ctx, keyNextLocalID, strconv.FormatInt(next-1, 10)); err != nil {
		return 0, err
	}
	return next, nil
}
