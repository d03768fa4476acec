package client

import (
	"context"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

type Client interface {
	// SetToken installs the bearer token sent with authenticated calls.
	SetToken(token string)
	Token() string

	Ping(ctx context.Context) error
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, in models.RegisterInput) (*models.Session, error)

	ListCounties(ctx context.Context) ([]models.County, error)
	ListChecklist(ctx context.Context, countyID int64) ([]models.ChecklistItem, error)
	ListPackages(ctx context.Context) ([]models.PermitPackage, error)
	// CreatePackage sends idempotencyKey so a replayed create is not applied twice.
	CreatePackage(ctx context.Context, in models.CreatePackageInput, idempotencyKey string) (*models.PermitPackage, error)
	UpdatePackageStatus(ctx context.Context, id int64, status models.PackageStatus) (*models.PermitPackage, error)
	ListDocuments(ctx context.Context, packageID int64) ([]models.PermitDocument, error)
	DeleteDocument(ctx context.Context, packageID, documentID int64) error

	// Admin endpoints.
	CreateChecklistItem(ctx context.Context, countyID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, countyID, itemID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error)
	DeleteChecklistItem(ctx context.Context, countyID, itemID int64) error
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID int64, role models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}
