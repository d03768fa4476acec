package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/localstore"
	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*PermitService, *fakeClient, *localstore.Store) {
	t.Helper()
	fc := newFakeClient()
	fc.session = &models.Session{Token: "tok", User: testUser}
	st := newStore(t)

	clock := &fakeClock{t: t0}
	e := NewSyncEngine(st, fc, SyncConfig{MaxQueueRetries: 3}, logging.Discard())
	e.now = clock.now
	s := NewPermitService(st, fc, e, 5*time.Millisecond, logging.Discard())
	s.now = clock.now
	return s, fc, st
}

func loggedIn(t *testing.T) (*PermitService, *fakeClient, *localstore.Store) {
	t.Helper()
	s, fc, st := newService(t)
	_, outcome, err := s.Login(context.Background(), testUser.Email, "secret")
	require.NoError(t, err)
	require.Equal(t, Synced, outcome)
	return s, fc, st
}

func TestLogin_Online(t *testing.T) {
	s, fc, st := newService(t)
	ctx := context.Background()

	u, outcome, err := s.Login(ctx, testUser.Email, "secret")
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	assert.Equal(t, testUser.ID, u.ID)
	assert.Equal(t, "tok", fc.Token())
	assert.True(t, s.State().IsOnline.Get())
	assert.Equal(t, testUser.ID, s.State().CurrentUser.Get().ID)
	assert.False(t, s.State().IsLoading.Get())

	cached, err := st.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	token, err := st.AuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestLogin_RejectedIsNotDowngraded(t *testing.T) {
	s, _, _ := loggedIn(t)

	_, _, err := s.Login(context.Background(), testUser.Email, "wrong")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.True(t, s.State().IsOnline.Get())
}

func TestLogin_OfflineFallbackForCachedEmailOnly(t *testing.T) {
	s, fc, _ := loggedIn(t)
	ctx := context.Background()
	fc.SetToken("")
	fc.fail("Login", unavailable())

	u, outcome, err := s.Login(ctx, "JANE@example.com", "anything")
	require.NoError(t, err)
	assert.Equal(t, Offline, outcome)
	assert.Equal(t, testUser.ID, u.ID)
	assert.Equal(t, "tok", fc.Token())
	assert.False(t, s.State().IsOnline.Get())
	assert.Equal(t, adviceOfflineLogin, s.State().Error.Get())

	_, _, err = s.Login(ctx, "other@example.com", "secret")
	assert.ErrorIs(t, err, client.ErrUnavailable)
}

func TestLogin_OfflineWithoutCachedUser(t *testing.T) {
	s, fc, _ := newService(t)
	fc.fail("Login", unavailable())

	_, _, err := s.Login(context.Background(), testUser.Email, "secret")
	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Nil(t, s.State().CurrentUser.Get())
}

func TestLogin_OtherUserWipesPreviousCache(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	s.State().IsOnline.Set(false)
	_, _, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "mine"})
	require.NoError(t, err)

	fc.session = &models.Session{Token: "tok2", User: models.User{ID: 2, Email: "bob@example.com"}}
	_, _, err = s.Login(ctx, "bob@example.com", "secret")
	require.NoError(t, err)

	n, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.State().Packages.Get())
}

func TestRegister(t *testing.T) {
	s, fc, _ := newService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, models.RegisterInput{Email: "new@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "registered", fc.Token())

	fc.fail("Register", unavailable())
	_, err = s.Register(ctx, models.RegisterInput{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrOfflineUnsupported)
	assert.False(t, s.State().IsOnline.Get())
}

func TestCreatePackage_OfflineIsOptimistic(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	s.State().IsOnline.Set(false)

	updates, cancel := s.State().Packages.Subscribe()
	defer cancel()
	<-updates

	p, outcome, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Pool Permit"})
	require.NoError(t, err)
	assert.Equal(t, Queued, outcome)
	assert.Less(t, p.ID, int64(0))
	assert.True(t, p.PendingSync)
	assert.Nil(t, p.Description)
	assert.Equal(t, adviceQueued, s.State().Error.Get())

	list := <-updates
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
	assert.NotContains(t, fc.Calls(), "CreatePackage 1")

	n, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreatePackage_Online(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()

	p, outcome, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	assert.Equal(t, int64(101), p.ID)

	cached, err := st.Package(ctx, 101)
	require.NoError(t, err)
	assert.False(t, cached.PendingSync)
	assert.NotNil(t, cached.LastSyncedAt)
	assert.Len(t, s.State().Packages.Get(), 1)
	assert.Len(t, fc.packages, 1)
}

func TestCreatePackage_TransientFailureQueuesWithSameKey(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	fc.fail("CreatePackage", unavailable())

	p, outcome, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	require.NoError(t, err)
	assert.Equal(t, Queued, outcome)
	assert.False(t, s.State().IsOnline.Get())

	pending, err := st.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, p.ClientRef, pending[0].IdempotencyKey)

	fc.heal()
	require.True(t, s.ForceSyncNow(ctx))
	assert.True(t, s.State().IsOnline.Get())

	list := s.State().Packages.Get()
	require.Len(t, list, 1)
	assert.Equal(t, int64(101), list[0].ID)
	assert.False(t, list[0].PendingSync)
}

func TestCreatePackage_RejectedIsNotQueued(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	fc.fail("CreatePackage", &client.RejectedError{Status: 400, Message: "county closed"})

	_, _, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	assert.ErrorIs(t, err, client.ErrRejected)

	n, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, s.State().IsOnline.Get())
}

func TestCreatePackage_Validation(t *testing.T) {
	s, _, _ := loggedIn(t)
	_, _, err := s.CreatePackage(context.Background(), models.CreatePackageInput{CountyID: 1})
	assert.ErrorContains(t, err, "name is required")
}

func TestCreatePackage_RequiresUser(t *testing.T) {
	s, _, _ := newService(t)
	_, _, err := s.CreatePackage(context.Background(), models.CreatePackageInput{CountyID: 1, Name: "x"})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestUpdatePackageStatus(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	p, _, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	require.NoError(t, err)

	_, _, err = s.UpdatePackageStatus(ctx, p.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, outcome, err := s.UpdatePackageStatus(ctx, p.ID, models.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	assert.Equal(t, models.StatusSubmitted, fc.packages[0].Status)

	cached, err := st.Package(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, cached.Status)
	assert.False(t, cached.PendingSync)
}

func TestUpdatePackageStatus_PendingPackageGoesThroughQueue(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	s.State().IsOnline.Set(false)
	p, _, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	require.NoError(t, err)
	s.State().IsOnline.Set(true)

	got, outcome, err := s.UpdatePackageStatus(ctx, p.ID, models.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, Queued, outcome)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	assert.NotContains(t, fc.Calls(), "UpdatePackageStatus -1")

	list := s.State().Packages.Get()
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusSubmitted, list[0].Status)

	n, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdatePackageStatus_UnknownOffline(t *testing.T) {
	s, _, _ := loggedIn(t)
	s.State().IsOnline.Set(false)
	_, _, err := s.UpdatePackageStatus(context.Background(), 42, models.StatusSubmitted)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestLoadCounties_FallsBackToCache(t *testing.T) {
	s, fc, _ := loggedIn(t)
	ctx := context.Background()
	fc.counties = []models.County{{ID: 1, Name: "Miami-Dade", State: "FL"}}

	list, outcome, err := s.LoadCounties(ctx)
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	assert.Len(t, list, 1)

	fc.fail("ListCounties", unavailable())
	list, outcome, err = s.LoadCounties(ctx)
	require.NoError(t, err)
	assert.Equal(t, Offline, outcome)
	assert.Len(t, list, 1)
	assert.Equal(t, adviceOffline, s.State().Error.Get())
	assert.False(t, s.State().IsOnline.Get())

	s.ClearError()
	assert.Empty(t, s.State().Error.Get())
}

func TestLoadCounties_RejectionIsAnError(t *testing.T) {
	s, fc, _ := loggedIn(t)
	fc.fail("ListCounties", &client.RejectedError{Status: 400})

	_, _, err := s.LoadCounties(context.Background())
	assert.ErrorIs(t, err, client.ErrRejected)
}

func TestLoadCounties_ExpiredSessionServesCache(t *testing.T) {
	s, fc, _ := loggedIn(t)
	fc.fail("ListCounties", client.ErrUnauthorized)

	_, outcome, err := s.LoadCounties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Offline, outcome)
	assert.Equal(t, adviceSession, s.State().Error.Get())
	assert.True(t, s.State().IsOnline.Get())
}

func TestLoadPackages_MergesPendingRows(t *testing.T) {
	s, fc, _ := loggedIn(t)
	ctx := context.Background()
	fc.packages = []models.PermitPackage{{ID: 5, CountyID: 1, Name: "Shed", Status: models.StatusApproved}}

	s.State().IsOnline.Set(false)
	_, _, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	require.NoError(t, err)
	s.State().IsOnline.Set(true)

	list, outcome, err := s.LoadPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	require.Len(t, list, 2)
	assert.Equal(t, testUser.ID, list[0].UserID)
}

func TestGetCountyChecklist_Ordered(t *testing.T) {
	s, fc, _ := loggedIn(t)
	ctx := context.Background()
	fc.checks[1] = []models.ChecklistItem{
		{ID: 10, CountyID: 1, Title: "Site Plan", OrderIndex: 2},
		{ID: 11, CountyID: 1, Title: "Building Permit Application", OrderIndex: 1},
	}

	items, outcome, err := s.GetCountyChecklist(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	assert.Equal(t, []string{"Building Permit Application", "Site Plan"}, checklistTitles(items))

	s.State().IsOnline.Set(false)
	items, outcome, err = s.GetCountyChecklist(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Offline, outcome)
	assert.Equal(t, []string{"Building Permit Application", "Site Plan"}, checklistTitles(items))
}

func TestDeleteDocument(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	fc.packages = []models.PermitPackage{{ID: 5, UserID: 1, CountyID: 1, Name: "Shed"}}
	fc.docs[5] = []models.PermitDocument{{ID: 7, PackageID: 5, FileName: "a.pdf"}, {ID: 8, PackageID: 5, FileName: "b.pdf"}}

	docs, outcome, err := s.GetPackageDocuments(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)
	require.Len(t, docs, 2)

	outcome, err = s.DeleteDocument(ctx, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, Synced, outcome)

	fc.fail("DeleteDocument", unavailable())
	outcome, err = s.DeleteDocument(ctx, 5, 8)
	require.NoError(t, err)
	assert.Equal(t, Queued, outcome)

	docs, err = st.DocumentsByPackage(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, docs)

	fc.heal()
	require.True(t, s.ForceSyncNow(ctx))
	assert.Empty(t, fc.docs[5])
}

func TestGetPackageDocuments_OfflineCarriesAdvisory(t *testing.T) {
	s, fc, _ := loggedIn(t)
	ctx := context.Background()
	fc.packages = []models.PermitPackage{{ID: 5, UserID: 1, CountyID: 1, Name: "Shed"}}
	fc.docs[5] = []models.PermitDocument{{ID: 7, PackageID: 5, FileName: "a.pdf"}}
	_, _, err := s.GetPackageDocuments(ctx, 5)
	require.NoError(t, err)
	s.ClearError()

	s.State().IsOnline.Set(false)
	docs, outcome, err := s.GetPackageDocuments(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Offline, outcome)
	require.Len(t, docs, 1)
	assert.Equal(t, adviceOffline, s.State().Error.Get())
	assert.Equal(t, 1, countCalls(fc, "ListDocuments 5"))

	// a provisional package is read locally without claiming to be offline
	s.ClearError()
	s.State().IsOnline.Set(true)
	_, outcome, err = s.GetPackageDocuments(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, Offline, outcome)
	assert.Empty(t, s.State().Error.Get())
}

func TestProbeAndWatcher(t *testing.T) {
	s, fc, _ := loggedIn(t)
	ctx := context.Background()

	fc.fail("Ping", unavailable())
	online, recovered := s.ProbeConnectivity(ctx)
	assert.False(t, online)
	assert.False(t, recovered)

	s.State().IsOnline.Set(false)
	_, _, err := s.CreatePackage(ctx, models.CreatePackageInput{CountyID: 1, Name: "Deck"})
	require.NoError(t, err)

	fc.heal()
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan error)
	go func() { done <- s.RunConnectivityWatcher(wctx) }()

	require.Eventually(t, func() bool {
		return countCalls(fc, "CreatePackage 1") == 1 && s.State().SyncStatus.Get().State == models.SyncSuccess
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.State().IsOnline.Get())

	cancel()
	assert.NoError(t, <-done)
}

func TestGetSyncStatsAndDeadLetters(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, st.Enqueue(ctx, &models.SyncQueueEntry{EntityType: models.EntityCounty, EntityID: 1, Operation: models.OpUpdate}))

	assert.False(t, s.ForceSyncNow(ctx))
	dead, err := s.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)

	fc.fail("Ping", unavailable())
	stats, err := s.GetSyncStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeadLetters)
	assert.False(t, stats.IsOnline)
	assert.False(t, s.State().IsOnline.Get())

	require.NoError(t, s.RetryDeadLetter(ctx, dead[0].ID))
	assert.Error(t, s.RetryDeadLetter(ctx, dead[0].ID))

	s.AcknowledgeSync()
	assert.Equal(t, models.SyncIdle, s.State().SyncStatus.Get().State)
}

func TestLogoutAndRestore(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	fc.counties = []models.County{{ID: 1, Name: "Miami-Dade"}}
	require.True(t, s.ForceSyncNow(ctx))

	restored := NewPermitService(st, newFakeClient(), NewSyncEngine(st, fc, SyncConfig{}, logging.Discard()), time.Second, logging.Discard())
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, testUser.ID, restored.State().CurrentUser.Get().ID)
	assert.Len(t, restored.State().Counties.Get(), 1)
	assert.NotNil(t, restored.State().LastSyncTime.Get())

	require.NoError(t, s.Logout(ctx))
	assert.Empty(t, fc.Token())
	assert.Nil(t, s.State().CurrentUser.Get())
	assert.Nil(t, s.State().Counties.Get())

	u, err := st.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	counties, err := st.Counties(ctx)
	require.NoError(t, err)
	assert.Empty(t, counties)
}

func TestLogout_WaitsForInFlightCycle(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()
	fc.counties = []models.County{{ID: 1, Name: "Travis"}}
	fc.packages = []models.PermitPackage{{ID: 5, UserID: 1, CountyID: 1, Name: "Shed"}}
	fc.block = make(chan struct{})

	synced := make(chan bool)
	go func() { synced <- s.Engine().PerformFullSync(ctx) }()
	require.Eventually(t, func() bool {
		return s.State().SyncStatus.Get().State == models.SyncSyncing
	}, time.Second, time.Millisecond)

	loggedOut := make(chan error)
	go func() { loggedOut <- s.Logout(ctx) }()

	select {
	case <-loggedOut:
		t.Fatal("logout finished while a cycle was writing")
	case <-time.After(20 * time.Millisecond):
	}

	close(fc.block)
	<-synced
	require.NoError(t, <-loggedOut)

	counties, err := st.Counties(ctx)
	require.NoError(t, err)
	assert.Empty(t, counties)
	pkgs, err := st.PackagesByUser(ctx, testUser.ID)
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestLogout_SuspendsBackgroundUntilNextLogin(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := context.Background()
	e := s.Engine()
	t.Cleanup(e.StopBackground)

	e.StartBackground(ctx)
	require.True(t, e.BackgroundRunning())

	require.NoError(t, s.Logout(ctx))
	assert.False(t, e.BackgroundRunning())

	_, _, err := s.Login(ctx, testUser.Email, "secret")
	require.NoError(t, err)
	assert.True(t, e.BackgroundRunning())
}

func TestLogin_DoesNotStartBackgroundThatWasNeverStarted(t *testing.T) {
	s, _, _ := loggedIn(t)
	ctx := context.Background()

	require.NoError(t, s.Logout(ctx))
	_, _, err := s.Login(ctx, testUser.Email, "secret")
	require.NoError(t, err)
	assert.False(t, s.Engine().BackgroundRunning())
}

func TestAdmin(t *testing.T) {
	s, fc, st := loggedIn(t)
	ctx := context.Background()

	it, err := s.CreateChecklistItem(ctx, 1, models.ChecklistItemInput{Title: "Survey", OrderIndex: 3})
	require.NoError(t, err)
	items, err := st.ChecklistByCounty(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = s.UpdateChecklistItem(ctx, 1, it.ID, models.ChecklistItemInput{Title: "Land Survey", OrderIndex: 1})
	require.NoError(t, err)
	items, err = st.ChecklistByCounty(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Land Survey", items[0].Title)

	require.NoError(t, s.DeleteChecklistItem(ctx, 1, it.ID))
	items, err = st.ChecklistByCounty(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.UpdateUserRole(ctx, 2, "superuser")
	assert.Error(t, err)
	u, err := s.UpdateUserRole(ctx, 2, models.RoleCountyAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCountyAdmin, u.Role)
	require.NoError(t, s.DeleteUser(ctx, 2))

	fc.fail("ListUsers", unavailable())
	_, err = s.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrOfflineUnsupported)
	assert.False(t, s.State().IsOnline.Get())
}
