package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openhobd/go-hobd-server/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"serial_rx", snap.SerialRx,
					"command_tx", snap.CommandTx,
					"telemetry", snap.Telemetry,
					"trouble_codes", snap.TroubleCodes,
					"acks", snap.Acks,
					"device_errors", snap.DeviceErrors,
					"malformed", snap.Malformed,
					"tcp_rx", snap.TCPRx,
					"tcp_tx", snap.TCPTx,
					"hub_drops", snap.HubDrops,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
