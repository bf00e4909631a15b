package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/server"
)

// startPoller periodically enqueues a telemetry request so dashboards get a
// steady stream without any connected client having to drive the adapter.
// Enqueue overflow is expected under backend stalls and only logged at debug;
// the next tick tries again.
func startPoller(ctx context.Context, interval time.Duration, send server.SendFunc, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	l.Info("poller_start", "interval", interval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := send(hobd.CmdGetTelemetry); err != nil {
					l.Debug("poll_enqueue_drop", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
