package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

// SaveUser makes u the cached current user.
func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		return r.users.Replace(ctx, u)
	})
}

// CurrentUser returns nil when nobody has signed in on this device.
func (s *Store) CurrentUser(ctx context.Context) (*models.User, error) {
	return s.r.users.Current(ctx)
}

func (s *Store) UpsertPackage(ctx context.Context, p *models.PermitPackage) error {
	return s.r.packages.Upsert(ctx, p)
}

func (s *Store) Package(ctx context.Context, id int64) (*models.PermitPackage, error) {
	p, err := s.r.packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("package %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// PackagesByUser returns the user's packages, newest first.
func (s *Store) PackagesByUser(ctx context.Context, userID int64) ([]models.PermitPackage, error) {
	return s.r.packages.GetByUser(ctx, userID)
}

// DeletePackage removes the package and its documents.
func (s *Store) DeletePackage(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.documents.DeleteByPackage(ctx, id); err != nil {
			return err
		}
		return r.packages.Delete(ctx, id)
	})
}

// ReplacePackages refreshes the user's packages from an authoritative list
// stamped as synced at `at`. Pending local rows survive; documents of
// packages that disappeared are removed.
func (s *Store) ReplacePackages(ctx context.Context, userID int64, list []models.PermitPackage, at time.Time) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.packages.DeleteSyncedByUser(ctx, userID); err != nil {
			return err
		}
		skipped := 0
		for i := range list {
			p := list[i]
			p.PendingSync = false
			p.LastSyncedAt = &at
			wrote, err := r.packages.UpsertUnlessPending(ctx, &p)
			if err != nil {
				return err
			}
			if !wrote {
				skipped++
			}
		}
		n, err := r.documents.DeleteOrphans(ctx)
		if err != nil {
			return err
		}
		s.log.Debug(ctx, "packages replaced", "user_id", userID, "count", len(list),
			"kept_pending", skipped, "orphaned_documents", n)
		return nil
	})
}

func (s *Store) UpsertDocument(ctx context.Context, d *models.PermitDocument) error {
	return s.r.documents.Upsert(ctx, d)
}

// DocumentsByPackage returns the package's documents in upload order.
func (s *Store) DocumentsByPackage(ctx context.Context, packageID int64) ([]models.PermitDocument, error) {
	return s.r.documents.GetByPackage(ctx, packageID)
}

// ReplaceDocuments refreshes one package's documents. Documents with a
// queued DELETE stay deleted and pending rows survive.
func (s *Store) ReplaceDocuments(ctx context.Context, packageID int64, list []models.PermitDocument, at time.Time) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		deleting, err := r.queue.EntityIDs(ctx, models.EntityDocument, models.OpDelete)
		if err != nil {
			return err
		}
		skip := make(map[int64]struct{}, len(deleting))
		for _, id := range deleting {
			skip[id] = struct{}{}
		}

		if err := r.documents.DeleteSyncedByPackage(ctx, packageID); err != nil {
			return err
		}
		for i := range list {
			d := list[i]
			if _, ok := skip[d.ID]; ok {
				continue
			}
			d.PackageID = packageID
			d.PendingSync = false
			d.LastSyncedAt = &at
			if _, err := r.documents.UpsertUnlessPending(ctx, &d); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkSynced clears the pending flag of one entity and stamps it.
func (s *Store) MarkSynced(ctx context.Context, entityType models.EntityType, id int64, at time.Time) error {
	switch entityType {
	case models.EntityPackage:
		return s.r.packages.MarkSynced(ctx, id, at)
	case models.EntityDocument:
		return s.r.documents.MarkSynced(ctx, id, at)
	case models.EntityCounty, models.EntityChecklistItem:
		// reference data carries no pending flag
		return nil
	}
	return fmt.Errorf("mark synced: unknown entity type %q", entityType)
}

// DeleteAll empties one entity table, cascading to dependants.
func (s *Store) DeleteAll(ctx context.Context, entityType models.EntityType) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		switch entityType {
		case models.EntityCounty:
			if err := r.checklist.DeleteAll(ctx); err != nil {
				return err
			}
			return r.counties.DeleteAll(ctx)
		case models.EntityChecklistItem:
			return r.checklist.DeleteAll(ctx)
		case models.EntityPackage:
			if err := r.documents.DeleteAll(ctx); err != nil {
				return err
			}
			return r.packages.DeleteAll(ctx)
		case models.EntityDocument:
			return r.documents.DeleteAll(ctx)
		}
		return fmt.Errorf("delete all: unknown entity type %q", entityType)
	})
}

// ClearAll wipes every cached entity, the queue and the session. The
// provisional id counter is preserved so local ids are never handed out twice.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		next, ok, err := r.metadata.Get(ctx, keyNextLocalID)
		if err != nil {
			return err
		}
		for _, wipe := range []func(context.Context) error{
			r.documents.DeleteAll,
			r.packages.DeleteAll,
			r.checklist.DeleteAll,
			r.counties.DeleteAll,
			r.queue.Clear,
			r.users.Clear,
			r.metadata.Clear,
		} {
			if err := wipe(ctx); err != nil {
				return err
			}
		}
		if ok {
			return r.metadata.Set(ctx, keyNextLocalID, next)
		}
		return nil
	})
}
