//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openhobd/go-hobd-server/internal/emulator"
	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/hub"
	"github.com/openhobd/go-hobd-server/internal/metrics"
	"github.com/openhobd/go-hobd-server/internal/server"
)

// openPTY is a hook for tests (overridden in unit tests).
var openPTY = emulator.OpenPTY

// initEmulatorBackend runs a fake adapter behind a pseudo-terminal and
// points the regular serial pipeline at the slave side. No hardware needed.
func initEmulatorBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (server.SendFunc, func(), error) {
	dev, err := openPTY()
	if err != nil {
		return nil, func() {}, fmt.Errorf("emulator pty: %w", err)
	}
	// The adapter frames replies with the same scheme the parser validates
	// with, falling back to the firmware scheme when validation is off.
	sum := checksumFn(cfg.checksum)
	if sum == nil {
		sum = hobd.DeviceChecksum
	}
	a := emulator.NewAdapter(dev, emulator.WithChecksum(sum))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Run(ctx); err != nil && ctx.Err() == nil {
			metrics.IncError(metrics.ErrEmulator)
			l.Warn("emulator_stopped", "error", err)
		}
	}()
	l.Info("emulator_open", "slave", dev.SlavePath())

	serialCfg := *cfg
	serialCfg.serialDev = dev.SlavePath()
	send, cleanup, err := initSerialBackend(ctx, &serialCfg, h, l, wg)
	if err != nil {
		_ = dev.Close()
		return nil, func() {}, err
	}
	return send, func() { cleanup(); _ = dev.Close() }, nil
}
