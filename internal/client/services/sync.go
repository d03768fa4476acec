package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/localstore"
	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/client/observable"
	"github.com/dmitrijs2005/permitsync/internal/logging"
)

const cancelledMessage = "sync cancelled"

// SyncConfig tunes the engine. Zero durations fall back to the defaults.
type SyncConfig struct {
	// MaxQueueRetries is the number of rejected attempts after which a queued
	// mutation becomes a dead letter. Zero disables dead-lettering.
	MaxQueueRetries int
	Interval        time.Duration
	ErrorBackoff    time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Minute
	}
	return c
}

// SyncEngine reconciles the local store with the server. A cycle first
// replays the queued local mutations in FIFO order and then pulls the
// authoritative state: counties with their checklists, then the user's
// packages with their documents. Only one cycle runs at a time.
//
// Success and Error persist until Acknowledge or the start of the next cycle.
type SyncEngine struct {
	store  *localstore.Store
	client client.Client
	cfg    SyncConfig
	log    logging.Logger
	now    func() time.Time

	running atomic.Bool
	// cycleMu is held for the whole of a cycle; Exclusive waits on it.
	cycleMu  sync.Mutex
	status   *observable.Value[models.SyncStatus]
	lastSync *observable.Value[*time.Time]

	bgMu        sync.Mutex
	bgCancel    context.CancelFunc
	bgDone      chan struct{}
	bgParent    context.Context
	bgSuspended bool
}

func NewSyncEngine(store *localstore.Store, cl client.Client, cfg SyncConfig, log logging.Logger) *SyncEngine {
	return &SyncEngine{
		store:    store,
		client:   cl,
		cfg:      cfg.withDefaults(),
		log:      log.With("component", "sync"),
		now:      time.Now,
		status:   observable.NewValue(models.SyncStatus{State: models.SyncIdle}),
		lastSync: observable.NewValue[*time.Time](nil),
	}
}

func (e *SyncEngine) Status() *observable.Value[models.SyncStatus] { return e.status }

func (e *SyncEngine) LastSyncTime() *observable.Value[*time.Time] { return e.lastSync }

// Restore loads the persisted last sync time into the observable state.
func (e *SyncEngine) Restore(ctx context.Context) error {
	t, err := e.store.LastSyncTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last sync time: %w", err)
	}
	e.lastSync.Set(t)
	return nil
}

// cycleResult summarises one sync cycle.
type cycleResult struct {
	problems []string
	// err is set when the cycle ended early: a local store failure or
	// cancellation.
	err error
}

func (r cycleResult) ok() bool { return r.err == nil && len(r.problems) == 0 }

// PerformFullSync runs one replay-and-pull cycle. It returns false without
// touching the status when another cycle is in flight, and otherwise reports
// whether every step succeeded.
func (e *SyncEngine) PerformFullSync(ctx context.Context) bool {
	res, started := e.run(ctx)
	return started && res.ok()
}

// ForceSyncNow is the on-demand variant of PerformFullSync.
func (e *SyncEngine) ForceSyncNow(ctx context.Context) bool {
	return e.PerformFullSync(ctx)
}

// Acknowledge moves a finished Success or Error status back to Idle.
func (e *SyncEngine) Acknowledge() {
	e.status.Update(func(s models.SyncStatus) models.SyncStatus {
		if s.State == models.SyncSuccess || s.State == models.SyncError {
			return models.SyncStatus{State: models.SyncIdle, At: e.now()}
		}
		return s
	})
}

func (e *SyncEngine) run(ctx context.Context) (cycleResult, bool) {
	if !e.running.CompareAndSwap(false, true) {
		e.log.Debug(ctx, "sync already in progress")
		return cycleResult{}, false
	}
	defer e.running.Store(false)

	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	start := e.now()
	e.setStatus(models.SyncSyncing, "")
	e.log.Info(ctx, "sync started")

	res := e.cycle(ctx)

	switch {
	case errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) || ctx.Err() != nil:
		if res.err == nil {
			res.err = ctx.Err()
		}
		e.setStatus(models.SyncError, cancelledMessage)
		e.log.Warn(ctx, "sync cancelled")
	case res.err != nil:
		e.setStatus(models.SyncError, res.err.Error())
		e.log.Error(ctx, "sync aborted", "error", res.err)
	case len(res.problems) > 0:
		e.setStatus(models.SyncError, strings.Join(res.problems, "; "))
		e.log.Warn(ctx, "sync finished with errors", "problems", len(res.problems))
	default:
		at := e.now()
		if err := e.store.SetLastSyncTime(ctx, at); err != nil {
			res.err = local(err)
			e.setStatus(models.SyncError, res.err.Error())
			e.log.Error(ctx, "failed to persist last sync time", "error", err)
			break
		}
		e.lastSync.Set(&at)
		e.setStatus(models.SyncSuccess, "")
		e.log.Info(ctx, "sync finished", "took", at.Sub(start))
	}
	return res, true
}

// Exclusive runs fn once no cycle is writing to the store. Cycles started
// while fn runs wait for it to return.
func (e *SyncEngine) Exclusive(fn func() error) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	return fn()
}

func (e *SyncEngine) cycle(ctx context.Context) cycleResult {
	var res cycleResult

	problems, err := e.replay(ctx)
	res.problems = append(res.problems, problems...)
	if err != nil {
		res.err = err
		return res
	}

	problems, err = e.pull(ctx)
	res.problems = append(res.problems, problems...)
	res.err = err
	return res
}

func (e *SyncEngine) setStatus(state models.SyncState, msg string) {
	e.status.Set(models.SyncStatus{State: state, Message: msg, At: e.now()})
}

// pull refreshes the cache from the server. Every remote list call is
// independent: a failure is recorded and the remaining calls still run.
func (e *SyncEngine) pull(ctx context.Context) ([]string, error) {
	var problems []string
	fail := func(what string, err error) {
		e.log.Warn(ctx, "pull failed", "what", what, "error", err)
		problems = append(problems, fmt.Sprintf("%s: %v", what, err))
	}

	counties, err := e.client.ListCounties(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return problems, ctx.Err()
		}
		fail("counties", err)
	} else {
		if err := e.store.ReplaceCounties(ctx, counties); err != nil {
			return problems, local(err)
		}
		for _, c := range counties {
			if ctx.Err() != nil {
				return problems, ctx.Err()
			}
			items, err := e.client.ListChecklist(ctx, c.ID)
			if err != nil {
				fail(fmt.Sprintf("checklist of county %d", c.ID), err)
				continue
			}
			if err := e.store.ReplaceChecklist(ctx, c.ID, items); err != nil {
				return problems, local(err)
			}
		}
	}

	user, err := e.store.CurrentUser(ctx)
	if err != nil {
		return problems, local(err)
	}
	if user == nil {
		// guests only hold reference data
		e.log.Debug(ctx, "package pull skipped: no signed-in user")
		return problems, nil
	}

	if ctx.Err() != nil {
		return problems, ctx.Err()
	}
	pkgs, err := e.client.ListPackages(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return problems, ctx.Err()
		}
		fail("packages", err)
		return problems, nil
	}
	for i := range pkgs {
		if pkgs[i].UserID == 0 {
			pkgs[i].UserID = user.ID
		}
	}
	if err := e.store.ReplacePackages(ctx, user.ID, pkgs, e.now()); err != nil {
		return problems, local(err)
	}

	for _, p := range pkgs {
		if ctx.Err() != nil {
			return problems, ctx.Err()
		}
		docs, err := e.client.ListDocuments(ctx, p.ID)
		if err != nil {
			fail(fmt.Sprintf("documents of package %d", p.ID), err)
			continue
		}
		if err := e.store.ReplaceDocuments(ctx, p.ID, docs, e.now()); err != nil {
			return problems, local(err)
		}
	}
	return problems, nil
}

// Stats reports the queue sizes and the last sync time. Connectivity is
// checked with a ping.
func (e *SyncEngine) Stats(ctx context.Context) (models.SyncStats, error) {
	var st models.SyncStats
	var err error

	if st.PendingOperations, err = e.store.PendingCount(ctx); err != nil {
		return st, fmt.Errorf("failed to count pending operations: %w", err)
	}
	if st.DeadLetters, err = e.store.DeadCount(ctx); err != nil {
		return st, fmt.Errorf("failed to count dead letters: %w", err)
	}
	if st.LastSyncTime, err = e.store.LastSyncTime(ctx); err != nil {
		return st, fmt.Errorf("failed to read last sync time: %w", err)
	}
	st.IsOnline = e.client.Ping(ctx) == nil
	return st, nil
}
