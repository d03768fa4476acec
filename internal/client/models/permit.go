package models

import (
	"fmt"
	"time"
)

type PackageStatus string

const (
	StatusDraft      PackageStatus = "draft"
	StatusSubmitted  PackageStatus = "submitted"
	StatusInProgress PackageStatus = "in_progress"
	StatusApproved   PackageStatus = "approved"
	StatusRejected   PackageStatus = "rejected"
)

var packageStatuses = []PackageStatus{
	StatusDraft, StatusSubmitted, StatusInProgress, StatusApproved, StatusRejected,
}

// PackageStatuses returns every valid status in workflow order.
func PackageStatuses() []PackageStatus {
	out := make([]PackageStatus, len(packageStatuses))
	copy(out, packageStatuses)
	return out
}

func ParsePackageStatus(s string) (PackageStatus, error) {
	for _, st := range packageStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown package status %q", s)
}

// Customer holds the optional applicant fields of a package.
type Customer struct {
	Name    string `json:"customerName,omitempty"`
	Email   string `json:"customerEmail,omitempty"`
	Phone   string `json:"customerPhone,omitempty"`
	Company string `json:"customerCompany,omitempty"`
	License string `json:"customerLicense,omitempty"`
}

// Site holds the optional property fields of a package.
type Site struct {
	Address string `json:"siteAddress,omitempty"`
	City    string `json:"siteCity,omitempty"`
	State   string `json:"siteState,omitempty"`
	Zip     string `json:"siteZip,omitempty"`
	County  string `json:"siteCounty,omitempty"`
}

// PermitPackage is a user's permit application for one county.
type PermitPackage struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"userId"`
	CountyID    int64         `json:"countyId"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Status      PackageStatus `json:"status"`
	Customer
	Site
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Local bookkeeping, never sent to the server.
	PendingSync  bool       `json:"-"`
	LastSyncedAt *time.Time `json:"-"`
	ClientRef    string     `json:"-"`
}

// IsProvisional reports whether the package still carries a local id.
func (p *PermitPackage) IsProvisional() bool { return p.ID < 0 }

// CreatePackageInput is the payload of a package creation, both remote and
// queued.
type CreatePackageInput struct {
	CountyID    int64   `json:"countyId"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Customer
	Site
}

func (in CreatePackageInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("package name is required")
	}
	if in.CountyID <= 0 {
		return fmt.Errorf("county id must be positive")
	}
	return nil
}

// ApprovalStatus of an uploaded document.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PermitDocument is a file attached to a package against a checklist item.
type PermitDocument struct {
	ID              int64          `json:"id"`
	PackageID       int64          `json:"packageId"`
	ChecklistItemID int64          `json:"checklistItemId"`
	FileName        string         `json:"fileName"`
	FileURL         string         `json:"fileUrl"`
	FileSize        int64          `json:"fileSize"`
	MimeType        string         `json:"mimeType"`
	UploadedAt      time.Time      `json:"uploadedAt"`
	ApprovalStatus  ApprovalStatus `json:"approvalStatus,omitempty"`
	ReviewedBy      *int64         `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewedAt,omitempty"`
	ReviewNotes     string         `json:"reviewNotes,omitempty"`

	PendingSync   bool       `json:"-"`
	LastSyncedAt  *time.Time `json:"-"`
	LocalFilePath string     `json:"-"`
}
