package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

// wireTime accepts RFC 3339 as well as the zone-less timestamps the permit
// server emits ("2025-01-10T12:00:00.123"), which are read as UTC.
type wireTime struct {
	time.Time
}

var wireLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range wireLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *wireTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type wireUser struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Role      string   `json:"role"`
	CreatedAt wireTime `json:"createdAt"`
	UpdatedAt wireTime `json:"updatedAt"`
}

func (w wireUser) model() models.User {
	role := models.Role(w.Role)
	if role == "" {
		role = models.RoleUser
	}
	return models.User{
		ID:        w.ID,
		Email:     w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Role:      role,
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	}
}

type wireSession struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

type wireCounty struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	State     string   `json:"state"`
	CreatedAt wireTime `json:"createdAt"`
	UpdatedAt wireTime `json:"updatedAt"`
}

func (w wireCounty) model() models.County {
	return models.County{
		ID:        w.ID,
		Name:      w.Name,
		State:     w.State,
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	}
}

type wireChecklistItem struct {
	ID          int64    `json:"id"`
	CountyID    int64    `json:"countyId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	OrderIndex  int      `json:"orderIndex"`
	CreatedAt   wireTime `json:"createdAt"`
	UpdatedAt   wireTime `json:"updatedAt"`
}

func (w wireChecklistItem) model() models.ChecklistItem {
	return models.ChecklistItem{
		ID:          w.ID,
		CountyID:    w.CountyID,
		Title:       w.Title,
		Description: w.Description,
		Required:    w.Required,
		OrderIndex:  w.OrderIndex,
		CreatedAt:   w.CreatedAt.Time,
		UpdatedAt:   w.UpdatedAt.Time,
	}
}

type wirePackage struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"userId"`
	CountyID    int64   `json:"countyId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	models.Customer
	models.Site
	CreatedAt wireTime `json:"createdAt"`
	UpdatedAt wireTime `json:"updatedAt"`
}

func (w wirePackage) model() models.PermitPackage {
	status := models.PackageStatus(w.Status)
	if status == "" {
		status = models.StatusDraft
	}
	return models.PermitPackage{
		ID:          w.ID,
		UserID:      w.UserID,
		CountyID:    w.CountyID,
		Name:        w.Name,
		Description: w.Description,
		Status:      status,
		Customer:    w.Customer,
		Site:        w.Site,
		CreatedAt:   w.CreatedAt.Time,
		UpdatedAt:   w.UpdatedAt.Time,
	}
}

type wireDocument struct {
	ID              int64     `json:"id"`
	PackageID       int64     `json:"packageId"`
	ChecklistItemID int64     `json:"checklistItemId"`
	FileName        string    `json:"fileName"`
	FileURL         string    `json:"fileUrl"`
	FilePath        string    `json:"filePath"`
	FileSize        int64     `json:"fileSize"`
	MimeType        string    `json:"mimeType"`
	UploadedAt      wireTime  `json:"uploadedAt"`
	ApprovalStatus  string    `json:"approvalStatus"`
	IsApproved      bool      `json:"isApproved"`
	ApprovedBy      *int64    `json:"approvedBy"`
	ApprovalDate    *wireTime `json:"approvalDate"`
	RejectionReason string    `json:"rejectionReason"`
}

func (w wireDocument) model() models.PermitDocument {
	url := w.FileURL
	if url == "" {
		url = w.FilePath
	}
	approval := models.ApprovalStatus(w.ApprovalStatus)
	if approval == "" {
		switch {
		case w.IsApproved:
			approval = models.ApprovalApproved
		case w.RejectionReason != "":
			approval = models.ApprovalRejected
		default:
			approval = models.ApprovalPending
		}
	}
	return models.PermitDocument{
		ID:              w.ID,
		PackageID:       w.PackageID,
		ChecklistItemID: w.ChecklistItemID,
		FileName:        w.FileName,
		FileURL:         url,
		FileSize:        w.FileSize,
		MimeType:        w.MimeType,
		UploadedAt:      w.UploadedAt.Time,
		ApprovalStatus:  approval,
		ReviewedBy:      w.ApprovedBy,
		ReviewedAt:      w.ApprovalDate.ptr(),
		ReviewNotes:     w.RejectionReason,
	}
}

func convert[W any, M any](in []W, fn func(W) M) []M {
	out := make([]M, len(in))
	for i := range in {
		out[i] = fn(in[i])
	}
	return out
}
