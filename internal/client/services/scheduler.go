package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
)

// StartBackground runs a sync cycle immediately and then every
// SyncConfig.Interval while the client holds a usable token. After a cycle
// that failed on the local store the next attempt comes after ErrorBackoff.
// Calling it while already running does nothing.
func (e *SyncEngine) StartBackground(ctx context.Context) {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.bgCancel != nil {
		return
	}
	e.bgParent, e.bgSuspended = ctx, false

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.bgCancel, e.bgDone = cancel, done

	go func() {
		defer close(done)
		e.loop(ctx)
	}()
	e.log.Info(ctx, "background sync started", "interval", e.cfg.Interval)
}

// StopBackground cancels the background task and waits for it to exit. An
// in-flight cycle ends with the cancelled status. It is safe to call when not
// running.
func (e *SyncEngine) StopBackground() {
	e.bgMu.Lock()
	cancel, done := e.bgCancel, e.bgDone
	e.bgCancel, e.bgDone = nil, nil
	e.bgMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SuspendBackground stops a running background task so that Resume can
// start it again later with the original context.
func (e *SyncEngine) SuspendBackground() {
	e.bgMu.Lock()
	running := e.bgCancel != nil
	e.bgMu.Unlock()
	if !running {
		return
	}

	e.StopBackground()
	e.bgMu.Lock()
	e.bgSuspended = true
	e.bgMu.Unlock()
}

// ResumeBackground restarts a task stopped by SuspendBackground. It does
// nothing otherwise.
func (e *SyncEngine) ResumeBackground() {
	e.bgMu.Lock()
	parent, suspended := e.bgParent, e.bgSuspended
	e.bgMu.Unlock()
	if !suspended || parent.Err() != nil {
		return
	}
	e.StartBackground(parent)
}

func (e *SyncEngine) BackgroundRunning() bool {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	return e.bgCancel != nil
}

func (e *SyncEngine) loop(ctx context.Context) {
	for {
		wait := e.tick(ctx)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			e.log.Info(context.WithoutCancel(ctx), "background sync stopped")
			return
		case <-t.C:
		}
	}
}

// tick runs one gated cycle and returns the delay before the next one.
func (e *SyncEngine) tick(ctx context.Context) time.Duration {
	if !client.TokenUsable(e.client.Token(), e.now()) {
		e.log.Debug(ctx, "background sync skipped: no usable token")
		return e.cfg.Interval
	}
	res, started := e.run(ctx)
	if started && res.err != nil && isLocal(res.err) {
		return e.cfg.ErrorBackoff
	}
	return e.cfg.Interval
}
