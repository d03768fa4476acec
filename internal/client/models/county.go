package models

import "time"

// County is a jurisdiction. It is reference data and is replaced wholesale on
// every pull.
type County struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChecklistItem is a document requirement of a county. Items are displayed
// and evaluated in ascending OrderIndex.
type ChecklistItem struct {
	ID          int64     `json:"id"`
	CountyID    int64     `json:"countyId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	OrderIndex  int       `json:"orderIndex"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChecklistItemInput is used by the admin endpoints to create or change an item.
type ChecklistItemInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	OrderIndex  int    `json:"orderIndex"`
}
