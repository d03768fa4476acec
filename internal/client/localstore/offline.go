package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/google/uuid"
)

// CreatePackageOffline stores a provisional package under a fresh negative id
// and queues its CREATE in the same transaction. clientRef becomes the
// idempotency key of the queued create; a new one is generated when empty.
func (s *Store) CreatePackageOffline(ctx context.Context, userID int64, in models.CreatePackageInput, clientRef string) (*models.PermitPackage, error) {
	if clientRef == "" {
		clientRef = uuid.NewString()
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal create payload: %w", err)
	}
	now := s.now()

	var created *models.PermitPackage
	err = s.inTx(ctx, func(ctx context.Context, r repos) error {
		id, err := allocateLocalID(ctx, r)
		if err != nil {
			return err
		}
		p := &models.PermitPackage{
			ID:          id,
			UserID:      userID,
			CountyID:    in.CountyID,
			Name:        in.Name,
			Description: in.Description,
			Status:      models.StatusDraft,
			Customer:    in.Customer,
			Site:        in.Site,
			CreatedAt:   now,
			UpdatedAt:   now,
			PendingSync: true,
			ClientRef:   clientRef,
		}
		if err := r.packages.Upsert(ctx, p); err != nil {
			return err
		}
		if err := r.queue.Enqueue(ctx, &models.SyncQueueEntry{
			EntityType:     models.EntityPackage,
			EntityID:       id,
			Operation:      models.OpCreate,
			Payload:        payload,
			IdempotencyKey: p.ClientRef,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create package offline: %w", err)
	}
	return created, nil
}

// UpdatePackageStatusOffline patches the cached status, flags the package
// pending and queues the UPDATE.
func (s *Store) UpdatePackageStatusOffline(ctx context.Context, id int64, status models.PackageStatus) (*models.PermitPackage, error) {
	payload, err := json.Marshal(models.StatusPayload{Status: status})
	if err != nil {
		return nil, fmt.Errorf("marshal status payload: %w", err)
	}
	now := s.now()

	var updated *models.PermitPackage
	err = s.inTx(ctx, func(ctx context.Context, r repos) error {
		p, err := r.packages.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("package %d: %w", id, ErrNotFound)
		}
		if err := r.packages.SetStatus(ctx, id, status, true, now); err != nil {
			return err
		}
		if err := r.queue.Enqueue(ctx, &models.SyncQueueEntry{
			EntityType:     models.EntityPackage,
			EntityID:       id,
			Operation:      models.OpUpdate,
			Payload:        payload,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		p.Status = status
		p.PendingSync = true
		p.UpdatedAt = now
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update package status offline: %w", err)
	}
	return updated, nil
}

// DeleteDocumentOffline removes the cached document and queues its DELETE.
func (s *Store) DeleteDocumentOffline(ctx context.Context, packageID, documentID int64) error {
	now := s.now()
	err := s.inTx(ctx, func(ctx context.Context, r repos) error {
		d, err := r.documents.GetByID(ctx, documentID)
		if err != nil {
			return err
		}
		if d == nil || d.PackageID != packageID {
			return fmt.Errorf("document %d of package %d: %w", documentID, packageID, ErrNotFound)
		}
		if err := r.documents.Delete(ctx, documentID); err != nil {
			return err
		}
		parent := packageID
		return r.queue.Enqueue(ctx, &models.SyncQueueEntry{
			EntityType:     models.EntityDocument,
			EntityID:       documentID,
			ParentID:       &parent,
			Operation:      models.OpDelete,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      now,
		})
	})
	if err != nil {
		return fmt.Errorf("delete document offline: %w", err)
	}
	return nil
}

// DeleteDocument removes a cached document after the server confirmed it.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	return s.r.documents.Delete(ctx, id)
}

// RemapPackageID replaces a provisional package id with the server id in the
// package row, its documents and every queued entry that references it. The
// row is marked synced unless other queued changes still target it.
func (s *Store) RemapPackageID(ctx context.Context, oldID, newID int64, at time.Time) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		return remapPackage(ctx, r, oldID, newID, at)
	})
}

// CompletePackageCreate removes a replayed CREATE entry and remaps its
// package atomically, so a crash cannot replay the create twice.
func (s *Store) CompletePackageCreate(ctx context.Context, entryID, oldID, newID int64, at time.Time) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.queue.Remove(ctx, entryID); err != nil {
			return err
		}
		return remapPackage(ctx, r, oldID, newID, at)
	})
}

func remapPackage(ctx context.Context, r repos, oldID, newID int64, at time.Time) error {
	if oldID != newID {
		// A copy pulled under the server id loses to the local row.
		existing, err := r.packages.GetByID(ctx, newID)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := r.packages.Delete(ctx, newID); err != nil {
				return err
			}
		}
		if err := r.packages.ChangeID(ctx, oldID, newID); err != nil {
			return err
		}
		if err := r.documents.ReassignPackage(ctx, oldID, newID); err != nil {
			return err
		}
		if err := r.queue.RemapEntity(ctx, models.EntityPackage, oldID, newID); err != nil {
			return err
		}
		if err := r.queue.RemapParent(ctx, oldID, newID); err != nil {
			return err
		}
	}
	return markSyncedIfSettled(ctx, r, models.EntityPackage, newID, at)
}

func markSyncedIfSettled(ctx context.Context, r repos, entityType models.EntityType, id int64, at time.Time) error {
	n, err := r.queue.CountForEntity(ctx, entityType, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	switch entityType {
	case models.EntityPackage:
		return r.packages.MarkSynced(ctx, id, at)
	case models.EntityDocument:
		return r.documents.MarkSynced(ctx, id, at)
	}
	return nil
}
