package cli

import (
	"context"
	"fmt"
	"time"
)

// Sync runs one full cycle now and prints its result.
func (a *App) Sync(ctx context.Context) error {
	ok := a.service.ForceSyncNow(ctx)
	st := a.service.State().SyncStatus.Get()
	if !ok {
		a.println("Sync failed:", st.Message)
		return a.report(nil)
	}
	a.println("Sync complete.")
	a.service.AcknowledgeSync()
	return a.report(nil)
}

func (a *App) Stats(ctx context.Context) error {
	s, err := a.service.GetSyncStats(ctx)
	if err != nil {
		return a.report(err)
	}

	last := "never"
	if s.LastSyncTime != nil {
		last = s.LastSyncTime.Local().Format(time.DateTime)
	}
	a.println(fmt.Sprintf("Pending: %d  Dead: %d  Last sync: %s  Server: %s",
		s.PendingOperations, s.DeadLetters, last, modeOf(s.IsOnline)))
	a.println("Status:", a.service.State().SyncStatus.Get())
	return nil
}

// DeadLetters lists queued changes the server refused for good.
func (a *App) DeadLetters(ctx context.Context) error {
	list, err := a.service.DeadLetters(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(list) == 0 {
		a.println("No dead letters.")
		return nil
	}

	tw := table(a.out)
	fmt.Fprintln(tw, "ENTRY\tOP\tENTITY\tRETRIES\tERROR")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s %d\t%d\t%s\n", e.ID, e.Operation, e.EntityType, e.EntityID, e.RetryCount, e.LastError)
	}
	return tw.Flush()
}

// Revive puts a dead letter back in the queue for the next cycle.
func (a *App) Revive(ctx context.Context, args []string) error {
	id, err := parseID(args, 0, "entry id")
	if err != nil {
		return a.report(err)
	}
	if err := a.service.RetryDeadLetter(ctx, id); err != nil {
		return a.report(err)
	}
	a.println(fmt.Sprintf("Entry %d queued again.", id))
	return nil
}

// Acknowledge clears a finished sync status back to idle.
func (a *App) Acknowledge(ctx context.Context) error {
	a.service.AcknowledgeSync()
	a.println("Status:", a.service.State().SyncStatus.Get())
	return nil
}
