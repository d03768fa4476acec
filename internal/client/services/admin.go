package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

// Administrative operations are online only. The server enforces roles.

func (s *PermitService) online(op string, err error) error {
	if client.IsTransient(err) {
		s.setOnline(false)
		return fmt.Errorf("%s: %w: %v", op, ErrOfflineUnsupported, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PermitService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		return nil, s.online("list users", err)
	}
	return users, nil
}

func (s *PermitService) UpdateUserRole(ctx context.Context, userID int64, role models.Role) (*models.User, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, err
	}
	u, err := s.client.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return nil, s.online("update user role", err)
	}
	return u, nil
}

func (s *PermitService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.client.DeleteUser(ctx, userID); err != nil {
		return s.online("delete user", err)
	}
	return nil
}

// CreateChecklistItem adds an item on the server and to the cached checklist.
func (s *PermitService) CreateChecklistItem(ctx context.Context, countyID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error) {
	it, err := s.client.CreateChecklistItem(ctx, countyID, in)
	if err != nil {
		return nil, s.online("create checklist item", err)
	}
	if err := s.store.UpsertChecklistItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *PermitService) UpdateChecklistItem(ctx context.Context, countyID, itemID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error) {
	it, err := s.client.UpdateChecklistItem(ctx, countyID, itemID, in)
	if err != nil {
		return nil, s.online("update checklist item", err)
	}
	if err := s.store.UpsertChecklistItem(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *PermitService) DeleteChecklistItem(ctx context.Context, countyID, itemID int64) error {
	if err := s.client.DeleteChecklistItem(ctx, countyID, itemID); err != nil && !isGone(err) {
		return s.online("delete checklist item", err)
	}
	return s.store.DeleteChecklistItem(ctx, itemID)
}
