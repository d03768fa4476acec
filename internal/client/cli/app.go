package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
	"github.com/dmitrijs2005/permitsync/internal/client/config"
	"github.com/dmitrijs2005/permitsync/internal/client/localstore"
	"github.com/dmitrijs2005/permitsync/internal/client/services"
	"github.com/dmitrijs2005/permitsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

func modeOf(online bool) Mode {
	if online {
		return ModeOnline
	}
	return ModeOffline
}

const retryBase = 200 * time.Millisecond

type App struct {
	config  *config.Config
	store   *localstore.Store
	service *services.PermitService
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp opens the local store, builds the REST client, the sync engine and
// the facade, and restores the cached session.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	store, err := localstore.Open(ctx, c.DatabasePath, log)
	if err != nil {
		log.Error(ctx, "error opening local store", "path", c.DatabasePath, "err", err)
		return nil, err
	}

	rc := client.NewRESTClient(c.ServerURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithRetries(c.RemoteRetries, retryBase),
		client.WithLogger(log),
	)

	engine := services.NewSyncEngine(store, rc, services.SyncConfig{
		MaxQueueRetries: c.MaxQueueRetries,
		Interval:        c.SyncInterval,
		ErrorBackoff:    c.SyncErrorBackoff,
	}, log)
	svc := services.NewPermitService(store, rc, engine, c.OnlineCheckInterval, log)

	if err := svc.Restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return newApp(c, store, svc, log, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, store *localstore.Store, svc *services.PermitService, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		store:   store,
		service: svc,
		log:     log.With("component", "cli"),
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// Run starts background sync and the connectivity watcher, then blocks in
// the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engine := a.service.Engine()
	engine.StartBackground(ctx)
	defer engine.StopBackground()

	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		runREPL(ctx, a, a.status, a.reader)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.service.RunConnectivityWatcher(gctx)
	})
	g.Go(func() error {
		a.watchMode(gctx)
		return nil
	})
	g.Go(func() error {
		select {
		case <-replDone:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// watchMode reports online/offline switches as they happen.
func (a *App) watchMode(ctx context.Context) {
	ch, stop := a.service.State().IsOnline.Subscribe()
	defer stop()

	mode := modeOf(<-ch)
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-ch:
			if !ok {
				return
			}
			if m := modeOf(online); m != mode {
				mode = m
				a.log.Info(ctx, "connectivity changed", "mode", mode)
				a.println(fmt.Sprintf("Switched to %s mode", mode))
			}
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.service.State().CurrentUser.Get() != nil
}

// status is shown in the prompt: the signed-in user and the current mode.
func (a *App) status() string {
	st := a.service.State()
	who := "guest"
	if u := st.CurrentUser.Get(); u != nil {
		who = u.Email
	}
	return fmt.Sprintf("%s %s", who, modeOf(st.IsOnline.Get()))
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// report prints err, or else the advisory left by the last facade call.
// The advisory is cleared either way.
func (a *App) report(err error) error {
	msg := a.service.State().Error.Get()
	a.service.ClearError()
	if err != nil {
		a.println("Error:", err)
		return err
	}
	if msg != "" {
		a.println(msg)
	}
	return nil
}
