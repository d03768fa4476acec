package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/models"
)

// fakeClient is an in-memory permit server. Failures are injected per method
// through the err map; calls are recorded in order.
type fakeClient struct {
	mu sync.Mutex

	token    string
	counties []models.County
	checks   map[int64][]models.ChecklistItem
	packages []models.PermitPackage
	docs     map[int64][]models.PermitDocument
	users    []models.User
	session  *models.Session
	nextID   int64

	// err forces a failure of the named method; errFor fails one argument.
	err    map[string]error
	errFor map[string]map[int64]error

	calls   []string
	created map[string]int64 // idempotency key -> package id

	// block, when set, is waited on inside ListCounties.
	block chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		checks:  make(map[int64][]models.ChecklistItem),
		docs:    make(map[int64][]models.PermitDocument),
		err:     make(map[string]error),
		errFor:  make(map[string]map[int64]error),
		created: make(map[string]int64),
		nextID:  100,
	}
}

func (f *fakeClient) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err[method] = err
}

func (f *fakeClient) failFor(method string, id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errFor[method] == nil {
		f.errFor[method] = make(map[int64]error)
	}
	f.errFor[method][id] = err
}

func (f *fakeClient) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = make(map[string]error)
	f.errFor = make(map[string]map[int64]error)
}

func (f *fakeClient) record(method string, id int64) error {
	f.calls = append(f.calls, fmt.Sprintf("%s %d", method, id))
	if err := f.err[method]; err != nil {
		return err
	}
	return f.errFor[method][id]
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("Ping", 0)
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Login", 0); err != nil {
		return nil, err
	}
	if f.session == nil || f.session.User.Email != email || password != "secret" {
		return nil, fmt.Errorf("login: %w", client.ErrUnauthorized)
	}
	s := *f.session
	return &s, nil
}

func (f *fakeClient) Register(ctx context.Context, in models.RegisterInput) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Register", 0); err != nil {
		return nil, err
	}
	f.nextID++
	s := &models.Session{Token: "registered", User: models.User{ID: f.nextID, Email: in.Email, Role: models.RoleUser}}
	f.session = s
	return s, nil
}

func (f *fakeClient) ListCounties(ctx context.Context) ([]models.County, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCounties", 0); err != nil {
		return nil, err
	}
	return append([]models.County(nil), f.counties...), nil
}

func (f *fakeClient) ListChecklist(ctx context.Context, countyID int64) ([]models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListChecklist", countyID); err != nil {
		return nil, err
	}
	return append([]models.ChecklistItem(nil), f.checks[countyID]...), nil
}

func (f *fakeClient) ListPackages(ctx context.Context) ([]models.PermitPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListPackages", 0); err != nil {
		return nil, err
	}
	return append([]models.PermitPackage(nil), f.packages...), nil
}

func (f *fakeClient) CreatePackage(ctx context.Context, in models.CreatePackageInput, key string) (*models.PermitPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePackage", in.CountyID); err != nil {
		return nil, err
	}
	if id, ok := f.created[key]; ok {
		for _, p := range f.packages {
			if p.ID == id {
				return &p, nil
			}
		}
	}
	f.nextID++
	p := models.PermitPackage{
		ID:          f.nextID,
		CountyID:    in.CountyID,
		Name:        in.Name,
		Description: in.Description,
		Status:      models.StatusDraft,
		Customer:    in.Customer,
		Site:        in.Site,
	}
	if f.session != nil {
		p.UserID = f.session.User.ID
	}
	f.packages = append(f.packages, p)
	f.created[key] = p.ID
	return &p, nil
}

func (f *fakeClient) UpdatePackageStatus(ctx context.Context, id int64, status models.PackageStatus) (*models.PermitPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdatePackageStatus", id); err != nil {
		return nil, err
	}
	for i := range f.packages {
		if f.packages[i].ID == id {
			f.packages[i].Status = status
			p := f.packages[i]
			return &p, nil
		}
	}
	return nil, &client.RejectedError{Status: 404, Message: "package not found"}
}

func (f *fakeClient) ListDocuments(ctx context.Context, packageID int64) ([]models.PermitDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListDocuments", packageID); err != nil {
		return nil, err
	}
	return append([]models.PermitDocument(nil), f.docs[packageID]...), nil
}

func (f *fakeClient) DeleteDocument(ctx context.Context, packageID, documentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteDocument", documentID); err != nil {
		return err
	}
	list := f.docs[packageID]
	for i := range list {
		if list[i].ID == documentID {
			f.docs[packageID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return &client.RejectedError{Status: 404, Message: "document not found"}
}

func (f *fakeClient) CreateChecklistItem(ctx context.Context, countyID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateChecklistItem", countyID); err != nil {
		return nil, err
	}
	f.nextID++
	it := models.ChecklistItem{ID: f.nextID, CountyID: countyID, Title: in.Title, Required: in.Required, OrderIndex: in.OrderIndex}
	f.checks[countyID] = append(f.checks[countyID], it)
	return &it, nil
}

func (f *fakeClient) UpdateChecklistItem(ctx context.Context, countyID, itemID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateChecklistItem", itemID); err != nil {
		return nil, err
	}
	it := models.ChecklistItem{ID: itemID, CountyID: countyID, Title: in.Title, Required: in.Required, OrderIndex: in.OrderIndex}
	return &it, nil
}

func (f *fakeClient) DeleteChecklistItem(ctx context.Context, countyID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("DeleteChecklistItem", itemID)
}

func (f *fakeClient) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListUsers", 0); err != nil {
		return nil, err
	}
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeClient) UpdateUserRole(ctx context.Context, userID int64, role models.Role) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateUserRole", userID); err != nil {
		return nil, err
	}
	return &models.User{ID: userID, Role: role}, nil
}

func (f *fakeClient) DeleteUser(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("DeleteUser", userID)
}

var _ client.Client = (*fakeClient)(nil)
