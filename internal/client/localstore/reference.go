package localstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

func (s *Store) UpsertCounty(ctx context.Context, c *models.County) error {
	return s.r.counties.Upsert(ctx, c)
}

// Counties returns every cached county ordered by name.
func (s *Store) Counties(ctx context.Context) ([]models.County, error) {
	return s.r.counties.GetAll(ctx)
}

func (s *Store) County(ctx context.Context, id int64) (*models.County, error) {
	c, err := s.r.counties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("county %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// DeleteCounty removes the county and its checklist.
func (s *Store) DeleteCounty(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.checklist.DeleteByCounty(ctx, id); err != nil {
			return err
		}
		return r.counties.Delete(ctx, id)
	})
}

// ReplaceCounties swaps the county cache for list. Checklists of counties
// that disappeared are removed with them.
func (s *Store) ReplaceCounties(ctx context.Context, list []models.County) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.counties.DeleteAll(ctx); err != nil {
			return err
		}
		for i := range list {
			if err := r.counties.Upsert(ctx, &list[i]); err != nil {
				return err
			}
		}
		n, err := r.checklist.DeleteOrphans(ctx)
		if err != nil {
			return err
		}
		s.log.Debug(ctx, "counties replaced", "count", len(list), "orphaned_items", n)
		return nil
	})
}

func (s *Store) UpsertChecklistItem(ctx context.Context, it *models.ChecklistItem) error {
	return s.r.checklist.Upsert(ctx, it)
}

// ChecklistByCounty returns the county's items in ascending order index.
func (s *Store) ChecklistByCounty(ctx context.Context, countyID int64) ([]models.ChecklistItem, error) {
	return s.r.checklist.GetByCounty(ctx, countyID)
}

func (s *Store) DeleteChecklistItem(ctx context.Context, id int64) error {
	return s.r.checklist.Delete(ctx, id)
}

// ReplaceChecklist swaps the checklist of one county for items.
func (s *Store) ReplaceChecklist(ctx context.Context, countyID int64, items []models.ChecklistItem) error {
	return s.inTx(ctx, func(ctx context.Context, r repos) error {
		if err := r.checklist.DeleteByCounty(ctx, countyID); err != nil {
			return err
		}
		for i := range items {
			it := items[i]
			it.CountyID = countyID
			if err := r.checklist.Upsert(ctx, &it); err != nil {
				return err
			}
		}
		return nil
	})
}
