//go:build !linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openhobd/go-hobd-server/internal/hub"
	"github.com/openhobd/go-hobd-server/internal/server"
)

// Placeholder so non-linux builds compile; the emulator needs a pty.
func initEmulatorBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (server.SendFunc, func(), error) {
	return nil, func() {}, fmt.Errorf("emulator backend unsupported on this platform")
}
