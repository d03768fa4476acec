package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/localstore"
	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/client/observable"
	"github.com/dmitrijs2005/permitsync/internal/logging"
	"github.com/google/uuid"
)

// Outcome tells the caller where the result of an operation came from.
type Outcome int

const (
	// Synced results were confirmed by the server.
	Synced Outcome = iota + 1
	// Queued writes were applied locally and wait in the sync queue.
	Queued
	// Offline results were served from the local cache.
	Offline
)

func (o Outcome) String() string {
	switch o {
	case Synced:
		return "synced"
	case Queued:
		return "queued"
	case Offline:
		return "offline"
	}
	return "unknown"
}

const (
	adviceOffline      = "Working offline: showing cached data"
	adviceQueued       = "Working offline: change saved locally and will sync when the server is reachable"
	adviceOfflineLogin = "Working offline: signed in with the cached account"
	adviceSession      = "Session expired: sign in again to sync"
)

// State is the observable surface of the facade.
type State struct {
	Counties     *observable.Value[[]models.County]
	Packages     *observable.Value[[]models.PermitPackage]
	CurrentUser  *observable.Value[*models.User]
	IsLoading    *observable.Value[bool]
	Error        *observable.Value[string]
	IsOnline     *observable.Value[bool]
	SyncStatus   *observable.Value[models.SyncStatus]
	LastSyncTime *observable.Value[*time.Time]
}

// PermitService is the single entry point of the UI. Reads go to the server
// while it is presumed reachable and fall back to the cache; writes that
// cannot reach the server are applied locally and queued.
type PermitService struct {
	store  *localstore.Store
	client client.Client
	engine *SyncEngine
	log    logging.Logger
	now    func() time.Time

	checkInterval time.Duration
	state         *State
}

func NewPermitService(store *localstore.Store, cl client.Client, engine *SyncEngine, checkInterval time.Duration, log logging.Logger) *PermitService {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	return &PermitService{
		store:         store,
		client:        cl,
		engine:        engine,
		log:           log.With("component", "permits"),
		now:           time.Now,
		checkInterval: checkInterval,
		state: &State{
			Counties:     observable.NewValue[[]models.County](nil),
			Packages:     observable.NewValue[[]models.PermitPackage](nil),
			CurrentUser:  observable.NewValue[*models.User](nil),
			IsLoading:    observable.NewValue(false),
			Error:        observable.NewValue(""),
			IsOnline:     observable.NewValue(true),
			SyncStatus:   engine.Status(),
			LastSyncTime: engine.LastSyncTime(),
		},
	}
}

func (s *PermitService) State() *State { return s.state }

func (s *PermitService) Engine() *SyncEngine { return s.engine }

// Restore loads the cached session and collections, so the UI has data
// before the first network call.
func (s *PermitService) Restore(ctx context.Context) error {
	if err := s.engine.Restore(ctx); err != nil {
		return err
	}
	u, err := s.store.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cached user: %w", err)
	}
	token, err := s.store.AuthToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cached token: %w", err)
	}
	s.client.SetToken(token)
	s.state.CurrentUser.Set(u)

	counties, err := s.store.Counties(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cached counties: %w", err)
	}
	s.state.Counties.Set(counties)
	if u != nil {
		return s.reloadPackages(ctx, u.ID)
	}
	return nil
}

func (s *PermitService) ClearError() { s.state.Error.Set("") }

func (s *PermitService) advise(msg string) { s.state.Error.Set(msg) }

func (s *PermitService) setOnline(online bool) {
	if s.state.IsOnline.Get() != online {
		s.log.Info(context.Background(), "connectivity changed", "online", online)
	}
	s.state.IsOnline.Set(online)
}

func (s *PermitService) loading() func() {
	s.state.IsLoading.Set(true)
	return func() { s.state.IsLoading.Set(false) }
}

// fallback reports whether a remote failure permits serving or writing the
// local copy instead. Connectivity failures also mark the client offline.
func (s *PermitService) fallback(err error) bool {
	switch {
	case client.IsTransient(err):
		s.setOnline(false)
		return true
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrNotLoggedIn):
		return true
	}
	return false
}

func (s *PermitService) adviceFor(err error, fallbackMsg string) string {
	if errors.Is(err, client.ErrUnauthorized) {
		return adviceSession
	}
	return fallbackMsg
}

func (s *PermitService) requireUser(ctx context.Context) (*models.User, error) {
	if u := s.state.CurrentUser.Get(); u != nil {
		return u, nil
	}
	u, err := s.store.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	s.state.CurrentUser.Set(u)
	return u, nil
}

// Login authenticates against the server and caches the session. When the
// server is unreachable and the email matches the cached user, a degraded
// offline session is granted instead.
//
// The offline path does NOT verify the password: anyone with access to this
// device's store can resume the last user's session while offline. Queued
// writes are still checked by the server when they replay.
func (s *PermitService) Login(ctx context.Context, email, password string) (*models.User, Outcome, error) {
	defer s.loading()()

	sess, err := s.client.Login(ctx, email, password)
	if err == nil {
		if err := s.startSession(ctx, sess); err != nil {
			return nil, 0, err
		}
		return &sess.User, Synced, nil
	}
	if !client.IsTransient(err) {
		s.advise(err.Error())
		return nil, 0, fmt.Errorf("login: %w", err)
	}

	s.setOnline(false)
	cached, lerr := s.store.CurrentUser(ctx)
	if lerr != nil {
		return nil, 0, lerr
	}
	if cached == nil || !strings.EqualFold(cached.Email, strings.TrimSpace(email)) {
		return nil, 0, fmt.Errorf("login: no cached session for %s: %w", email, err)
	}
	token, lerr := s.store.AuthToken(ctx)
	if lerr != nil {
		return nil, 0, lerr
	}
	s.client.SetToken(token)
	s.state.CurrentUser.Set(cached)
	if err := s.reloadCache(ctx, cached.ID); err != nil {
		return nil, 0, err
	}
	s.advise(adviceOfflineLogin)
	s.engine.ResumeBackground()
	s.log.Warn(ctx, "offline login granted", "user", cached.ID)
	return cached, Offline, nil
}

// Register creates the account on the server and signs it in. It needs a
// connection.
func (s *PermitService) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	defer s.loading()()

	sess, err := s.client.Register(ctx, in)
	if err != nil {
		if client.IsTransient(err) {
			s.setOnline(false)
			return nil, fmt.Errorf("register: %w: %v", ErrOfflineUnsupported, err)
		}
		s.advise(err.Error())
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := s.startSession(ctx, sess); err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// startSession caches a fresh server session. Signing in as a different user
// wipes the previous user's cache and queue first.
func (s *PermitService) startSession(ctx context.Context, sess *models.Session) error {
	prev, err := s.store.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if prev != nil && prev.ID != sess.User.ID {
		n, _ := s.store.PendingCount(ctx)
		s.log.Warn(ctx, "switching user, discarding cache", "previous", prev.ID, "queued", n)
		if err := s.engine.Exclusive(func() error { return s.store.ClearAll(ctx) }); err != nil {
			return err
		}
	}
	if err := s.store.SaveUser(ctx, &sess.User); err != nil {
		return err
	}
	if err := s.store.SetAuthToken(ctx, sess.Token); err != nil {
		return err
	}
	s.client.SetToken(sess.Token)
	s.setOnline(true)
	s.ClearError()
	s.state.CurrentUser.Set(&sess.User)
	if err := s.reloadCache(ctx, sess.User.ID); err != nil {
		return err
	}
	s.engine.ResumeBackground()
	return nil
}

// Logout wipes the whole local cache, including unsynced changes. The
// background sync is suspended until the next sign-in and an in-flight cycle
// finishes before the wipe.
func (s *PermitService) Logout(ctx context.Context) error {
	s.engine.SuspendBackground()
	s.client.SetToken("")
	err := s.engine.Exclusive(func() error {
		return s.store.ClearAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.state.CurrentUser.Set(nil)
	s.state.Counties.Set(nil)
	s.state.Packages.Set(nil)
	s.state.LastSyncTime.Set(nil)
	s.engine.Acknowledge()
	s.ClearError()
	return nil
}

func (s *PermitService) reloadCache(ctx context.Context, userID int64) error {
	if err := s.reloadCounties(ctx); err != nil {
		return err
	}
	return s.reloadPackages(ctx, userID)
}

func (s *PermitService) reloadCounties(ctx context.Context) error {
	counties, err := s.store.Counties(ctx)
	if err != nil {
		return err
	}
	s.state.Counties.Set(counties)
	return nil
}

func (s *PermitService) reloadPackages(ctx context.Context, userID int64) error {
	pkgs, err := s.store.PackagesByUser(ctx, userID)
	if err != nil {
		return err
	}
	s.state.Packages.Set(pkgs)
	return nil
}

func (s *PermitService) LoadCounties(ctx context.Context) ([]models.County, Outcome, error) {
	defer s.loading()()

	if s.state.IsOnline.Get() {
		list, err := s.client.ListCounties(ctx)
		if err == nil {
			if err := s.store.ReplaceCounties(ctx, list); err != nil {
				return nil, 0, err
			}
			s.state.Counties.Set(list)
			return list, Synced, nil
		}
		if !s.fallback(err) {
			return nil, 0, fmt.Errorf("load counties: %w", err)
		}
		s.advise(s.adviceFor(err, adviceOffline))
	} else {
		s.advise(adviceOffline)
	}

	list, err := s.store.Counties(ctx)
	if err != nil {
		return nil, 0, err
	}
	s.state.Counties.Set(list)
	return list, Offline, nil
}

// LoadPackages returns the user's packages including the ones still waiting
// to be synced.
func (s *PermitService) LoadPackages(ctx context.Context) ([]models.PermitPackage, Outcome, error) {
	defer s.loading()()

	u, err := s.requireUser(ctx)
	if err != nil {
		return nil, 0, err
	}

	outcome := Offline
	if s.state.IsOnline.Get() {
		list, err := s.client.ListPackages(ctx)
		switch {
		case err == nil:
			for i := range list {
				if list[i].UserID == 0 {
					list[i].UserID = u.ID
				}
			}
			if err := s.store.ReplacePackages(ctx, u.ID, list, s.now()); err != nil {
				return nil, 0, err
			}
			outcome = Synced
		case s.fallback(err):
			s.advise(s.adviceFor(err, adviceOffline))
		default:
			return nil, 0, fmt.Errorf("load packages: %w", err)
		}
	} else {
		s.advise(adviceOffline)
	}

	if err := s.reloadPackages(ctx, u.ID); err != nil {
		return nil, 0, err
	}
	return s.state.Packages.Get(), outcome, nil
}

// GetCountyChecklist returns the county's items in display order.
func (s *PermitService) GetCountyChecklist(ctx context.Context, countyID int64) ([]models.ChecklistItem, Outcome, error) {
	defer s.loading()()

	outcome := Offline
	if s.state.IsOnline.Get() {
		items, err := s.client.ListChecklist(ctx, countyID)
		switch {
		case err == nil:
			if err := s.store.ReplaceChecklist(ctx, countyID, items); err != nil {
				return nil, 0, err
			}
			outcome = Synced
		case s.fallback(err):
			s.advise(s.adviceFor(err, adviceOffline))
		default:
			return nil, 0, fmt.Errorf("load checklist: %w", err)
		}
	} else {
		s.advise(adviceOffline)
	}

	items, err := s.store.ChecklistByCounty(ctx, countyID)
	if err != nil {
		return nil, 0, err
	}
	return items, outcome, nil
}

func (s *PermitService) GetPackageDocuments(ctx context.Context, packageID int64) ([]models.PermitDocument, Outcome, error) {
	defer s.loading()()

	outcome := Offline
	online := s.state.IsOnline.Get()
	// a provisional package is unknown to the server
	if packageID > 0 && online {
		docs, err := s.client.ListDocuments(ctx, packageID)
		switch {
		case err == nil:
			if err := s.store.ReplaceDocuments(ctx, packageID, docs, s.now()); err != nil {
				return nil, 0, err
			}
			outcome = Synced
		case s.fallback(err):
			s.advise(s.adviceFor(err, adviceOffline))
		default:
			return nil, 0, fmt.Errorf("load documents: %w", err)
		}
	} else if !online {
		s.advise(adviceOffline)
	}

	docs, err := s.store.DocumentsByPackage(ctx, packageID)
	if err != nil {
		return nil, 0, err
	}
	return docs, outcome, nil
}

// CreatePackage creates the package on the server, or stores it under a
// provisional negative id and queues the create when the server cannot be
// reached. The packages state is updated before returning either way.
func (s *PermitService) CreatePackage(ctx context.Context, in models.CreatePackageInput) (*models.PermitPackage, Outcome, error) {
	defer s.loading()()

	if err := in.Validate(); err != nil {
		return nil, 0, err
	}
	u, err := s.requireUser(ctx)
	if err != nil {
		return nil, 0, err
	}

	ref := uuid.NewString()
	advice := adviceQueued
	if s.state.IsOnline.Get() {
		p, err := s.client.CreatePackage(ctx, in, ref)
		switch {
		case err == nil:
			now := s.now()
			if p.UserID == 0 {
				p.UserID = u.ID
			}
			p.ClientRef = ref
			p.LastSyncedAt = &now
			if err := s.store.UpsertPackage(ctx, p); err != nil {
				return nil, 0, err
			}
			if err := s.reloadPackages(ctx, u.ID); err != nil {
				return nil, 0, err
			}
			return p, Synced, nil
		case s.fallback(err):
			advice = s.adviceFor(err, adviceQueued)
		default:
			s.advise(err.Error())
			return nil, 0, fmt.Errorf("create package: %w", err)
		}
	}

	p, err := s.store.CreatePackageOffline(ctx, u.ID, in, ref)
	if err != nil {
		return nil, 0, err
	}
	s.state.Packages.Update(func(list []models.PermitPackage) []models.PermitPackage {
		return append([]models.PermitPackage{*p}, list...)
	})
	s.advise(advice)
	return p, Queued, nil
}

// UpdatePackageStatus changes the status on the server when possible. A
// package that is provisional or already has queued changes is always
// updated through the queue, so its mutations reach the server in order.
func (s *PermitService) UpdatePackageStatus(ctx context.Context, id int64, status models.PackageStatus) (*models.PermitPackage, Outcome, error) {
	defer s.loading()()

	if _, err := models.ParsePackageStatus(string(status)); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}
	u, err := s.requireUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	cached, err := s.store.Package(ctx, id)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return nil, 0, err
	}

	advice := adviceQueued
	direct := s.state.IsOnline.Get() && id > 0 && (cached == nil || !cached.PendingSync)
	if direct {
		p, err := s.client.UpdatePackageStatus(ctx, id, status)
		switch {
		case err == nil:
			p, err = s.settleStatus(ctx, id, status, p, cached)
			if err != nil {
				return nil, 0, err
			}
			if err := s.reloadPackages(ctx, u.ID); err != nil {
				return nil, 0, err
			}
			return p, Synced, nil
		case s.fallback(err):
			advice = s.adviceFor(err, adviceQueued)
		default:
			s.advise(err.Error())
			return nil, 0, fmt.Errorf("update package status: %w", err)
		}
	}
	if cached == nil {
		return nil, 0, fmt.Errorf("package %d: %w", id, localstore.ErrNotFound)
	}

	p, err := s.store.UpdatePackageStatusOffline(ctx, id, status)
	if err != nil {
		return nil, 0, err
	}
	s.state.Packages.Update(func(list []models.PermitPackage) []models.PermitPackage {
		out := make([]models.PermitPackage, len(list))
		copy(out, list)
		for i := range out {
			if out[i].ID == id {
				out[i] = *p
			}
		}
		return out
	})
	s.advise(advice)
	return p, Queued, nil
}

// settleStatus writes a server-confirmed status change into the cache.
func (s *PermitService) settleStatus(ctx context.Context, id int64, status models.PackageStatus, remote, cached *models.PermitPackage) (*models.PermitPackage, error) {
	now := s.now()
	p := remote
	if p == nil {
		if cached == nil {
			return &models.PermitPackage{ID: id, Status: status}, nil
		}
		cp := *cached
		cp.Status = status
		cp.UpdatedAt = now
		p = &cp
	}
	if p.UserID == 0 && cached != nil {
		p.UserID = cached.UserID
	}
	p.PendingSync = false
	p.LastSyncedAt = &now
	if err := s.store.UpsertPackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteDocument removes a document on the server, or locally with a queued
// delete when the server cannot be reached.
func (s *PermitService) DeleteDocument(ctx context.Context, packageID, documentID int64) (Outcome, error) {
	defer s.loading()()

	advice := adviceQueued
	if packageID > 0 && s.state.IsOnline.Get() {
		err := s.client.DeleteDocument(ctx, packageID, documentID)
		switch {
		case err == nil || isGone(err):
			if err := s.store.DeleteDocument(ctx, documentID); err != nil {
				return 0, err
			}
			return Synced, nil
		case s.fallback(err):
			advice = s.adviceFor(err, adviceQueued)
		default:
			s.advise(err.Error())
			return 0, fmt.Errorf("delete document: %w", err)
		}
	}

	if err := s.store.DeleteDocumentOffline(ctx, packageID, documentID); err != nil {
		return 0, err
	}
	s.advise(advice)
	return Queued, nil
}

// ForceSyncNow runs a sync cycle on demand and refreshes the state from the
// cache afterwards. It returns false if a cycle was already running or the
// cycle failed.
func (s *PermitService) ForceSyncNow(ctx context.Context) bool {
	ok := s.engine.ForceSyncNow(ctx)
	if ok {
		s.setOnline(true)
	}
	var err error
	if u := s.state.CurrentUser.Get(); u != nil {
		err = s.reloadCache(ctx, u.ID)
	} else {
		err = s.reloadCounties(ctx)
	}
	if err != nil {
		s.log.Error(ctx, "failed to reload cache after sync", "error", err)
	}
	return ok
}

func (s *PermitService) GetSyncStats(ctx context.Context) (models.SyncStats, error) {
	st, err := s.engine.Stats(ctx)
	if err != nil {
		return st, err
	}
	s.setOnline(st.IsOnline)
	return st, nil
}

func (s *PermitService) DeadLetters(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return s.store.ListDead(ctx)
}

// RetryDeadLetter puts a dead-lettered mutation back into the queue.
func (s *PermitService) RetryDeadLetter(ctx context.Context, entryID int64) error {
	return s.store.Revive(ctx, entryID)
}

func (s *PermitService) AcknowledgeSync() { s.engine.Acknowledge() }
