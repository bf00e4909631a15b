package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/hub"
	"github.com/openhobd/go-hobd-server/internal/server"
)

// initBackend selects the backend, starts its RX loop and returns a command
// sender and cleanup. It returns an error instead of exiting the process to
// allow graceful handling by the caller.
func initBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (server.SendFunc, func(), error) {
	switch cfg.backend {
	case "serial":
		return initSerialBackend(ctx, cfg, h, l, wg)
	case "emulator":
		return initEmulatorBackend(ctx, cfg, h, l, wg)
	default:
		return nil, func() {}, fmt.Errorf("unknown backend %q (use serial|emulator)", cfg.backend)
	}
}

// checksumFn maps the configured checksum name to a parser scheme. "off"
// (and anything unrecognized, which validate rejects earlier) disables
// verification.
func checksumFn(name string) hobd.Checksum {
	switch name {
	case "sum8":
		return hobd.Sum8
	case "device":
		return hobd.DeviceChecksum
	default:
		return nil
	}
}
