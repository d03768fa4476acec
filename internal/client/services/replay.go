package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

var errUnsupportedEntry = errors.New("unsupported queue entry")

type entityKey struct {
	t  models.EntityType
	id int64
}

// replay drains the pending queue oldest first. A failed entry blocks every
// later entry of the same entity for the rest of the cycle so that one
// entity's mutations are never applied out of order.
func (e *SyncEngine) replay(ctx context.Context) ([]string, error) {
	entries, err := e.store.ListPending(ctx)
	if err != nil {
		return nil, local(err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	e.log.Info(ctx, "replaying queue", "entries", len(entries))

	var problems []string
	blocked := make(map[entityKey]bool)
	// provisional package id -> server id, learned during this cycle
	remapped := make(map[int64]int64)

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return problems, err
		}
		entry := &entries[i]
		translate(entry, remapped)

		key := entityKey{entry.EntityType, entry.EntityID}
		if blocked[key] {
			continue
		}
		if waitsForCreate(entry, blocked) {
			blocked[key] = true
			continue
		}

		serverID, err := e.apply(ctx, entry)
		if err == nil {
			if serverID != 0 {
				remapped[entry.EntityID] = serverID
			}
			e.log.Debug(ctx, "replayed", "entry", entry.ID, "entity", entry.EntityType, "op", entry.Operation)
			continue
		}
		if isLocal(err) || ctx.Err() != nil {
			return problems, err
		}

		blocked[key] = true
		problems = append(problems, fmt.Sprintf("%s %s %d: %v", entry.Operation, entry.EntityType, entry.EntityID, err))
		if err := e.recordFailure(ctx, entry, err); err != nil {
			return problems, err
		}
	}
	return problems, nil
}

func translate(entry *models.SyncQueueEntry, remapped map[int64]int64) {
	if entry.EntityType == models.EntityPackage {
		if id, ok := remapped[entry.EntityID]; ok {
			entry.EntityID = id
		}
	}
	if entry.ParentID != nil {
		if id, ok := remapped[*entry.ParentID]; ok {
			entry.ParentID = &id
		}
	}
}

// waitsForCreate reports whether entry targets a package that has not reached
// the server yet. Such entries stay queued untouched until the CREATE lands.
func waitsForCreate(entry *models.SyncQueueEntry, blocked map[entityKey]bool) bool {
	if entry.EntityType == models.EntityPackage && entry.Operation != models.OpCreate && entry.EntityID < 0 {
		return true
	}
	if entry.ParentID == nil {
		return false
	}
	return *entry.ParentID < 0 || blocked[entityKey{models.EntityPackage, *entry.ParentID}]
}

// apply sends one entry to the server and settles it locally. For a package
// CREATE it returns the id assigned by the server.
func (e *SyncEngine) apply(ctx context.Context, entry *models.SyncQueueEntry) (int64, error) {
	switch {
	case entry.EntityType == models.EntityPackage && entry.Operation == models.OpCreate:
		var in models.CreatePackageInput
		if err := json.Unmarshal(entry.Payload, &in); err != nil {
			return 0, fmt.Errorf("%w: bad create payload: %v", errUnsupportedEntry, err)
		}
		p, err := e.client.CreatePackage(ctx, in, entry.IdempotencyKey)
		if err != nil {
			return 0, err
		}
		if err := e.store.CompletePackageCreate(ctx, entry.ID, entry.EntityID, p.ID, e.now()); err != nil {
			return 0, local(err)
		}
		return p.ID, nil

	case entry.EntityType == models.EntityPackage && entry.Operation == models.OpUpdate:
		var body models.StatusPayload
		if err := json.Unmarshal(entry.Payload, &body); err != nil {
			return 0, fmt.Errorf("%w: bad status payload: %v", errUnsupportedEntry, err)
		}
		if _, err := e.client.UpdatePackageStatus(ctx, entry.EntityID, body.Status); err != nil {
			return 0, err
		}

	case entry.EntityType == models.EntityDocument && entry.Operation == models.OpDelete:
		if entry.ParentID == nil {
			return 0, fmt.Errorf("%w: document delete without package", errUnsupportedEntry)
		}
		err := e.client.DeleteDocument(ctx, *entry.ParentID, entry.EntityID)
		if err != nil && !isGone(err) {
			return 0, err
		}

	default:
		return 0, fmt.Errorf("%w: %s %s", errUnsupportedEntry, entry.Operation, entry.EntityType)
	}

	if err := e.store.CompleteEntry(ctx, entry, e.now()); err != nil {
		return 0, local(err)
	}
	return 0, nil
}

// recordFailure counts a failed attempt. Connectivity and session problems
// are retried forever; anything else becomes a dead letter once the retry
// budget is spent.
func (e *SyncEngine) recordFailure(ctx context.Context, entry *models.SyncQueueEntry, cause error) error {
	retries := entry.RetryCount + 1
	at := e.now()
	msg := cause.Error()

	permanent := !client.IsTransient(cause) &&
		!errors.Is(cause, client.ErrUnauthorized) &&
		!errors.Is(cause, client.ErrNotLoggedIn)
	limit := e.cfg.MaxQueueRetries

	if permanent && (errors.Is(cause, errUnsupportedEntry) || (limit > 0 && retries >= limit)) {
		e.log.Error(ctx, "queue entry dead-lettered", "entry", entry.ID, "retries", retries, "error", cause)
		if err := e.store.MarkDead(ctx, entry.ID, retries, at, msg); err != nil {
			return local(err)
		}
		return nil
	}

	e.log.Warn(ctx, "queue entry failed", "entry", entry.ID, "retries", retries, "error", cause)
	if err := e.store.RecordAttempt(ctx, entry.ID, retries, at, msg); err != nil {
		return local(err)
	}
	return nil
}

// isGone reports a rejection meaning the target no longer exists, which
// satisfies a delete.
func isGone(err error) bool {
	var rej *client.RejectedError
	return errors.As(err, &rej) && (rej.Status == http.StatusNotFound || rej.Status == http.StatusGone)
}
