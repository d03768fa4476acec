package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/client"
)

// ProbeConnectivity pings the server and updates IsOnline. It reports the
// new state and whether the client just came back online.
func (s *PermitService) ProbeConnectivity(ctx context.Context) (online, recovered bool) {
	was := s.state.IsOnline.Get()
	online = s.client.Ping(ctx) == nil
	s.setOnline(online)
	return online, online && !was
}

// RunConnectivityWatcher probes the server every check interval until ctx is
// done. When the client comes back online with a usable token, a sync cycle
// is started to drain the queue.
func (s *PermitService) RunConnectivityWatcher(ctx context.Context) error {
	t := time.NewTicker(s.checkInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		_, recovered := s.ProbeConnectivity(ctx)
		if !recovered {
			continue
		}
		s.log.Info(ctx, "server reachable again")
		if client.TokenUsable(s.client.Token(), s.now()) {
			s.ForceSyncNow(ctx)
		}
	}
}
