package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/hub"
	"github.com/openhobd/go-hobd-server/internal/metrics"
	"github.com/openhobd/go-hobd-server/internal/serial"
	"github.com/openhobd/go-hobd-server/internal/server"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// initSerialBackend opens the adapter device and launches the RX loop: read,
// feed the frame parser, drain complete frames, decode and broadcast.
func initSerialBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (server.SendFunc, func(), error) {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud, "checksum", cfg.checksum)
	w := serial.NewCommandWriter(ctx, sp, txQueueSize)
	var popts []hobd.ParserOption
	if sum := checksumFn(cfg.checksum); sum != nil {
		popts = append(popts, hobd.WithChecksum(sum))
	}
	parser := hobd.NewParser(popts...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("serial_rx_end")
		buf := make([]byte, serialReadBufSize)
		backoff := rxBackoffMin
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, err := sp.Read(buf)
			if n > 0 {
				parser.Feed(buf[:n])
				for {
					fr, ok := parser.Next()
					if !ok {
						break
					}
					metrics.IncSerialRx()
					ev, derr := hobd.DecodeEvent(fr)
					if derr != nil {
						metrics.IncError(metrics.ErrDecode)
						l.Warn("frame_decode_error", "type", fmt.Sprintf("0x%02X", fr.Type), "error", derr)
						continue
					}
					metrics.IncDecoded(ev.Kind())
					h.Broadcast(ev)
				}
				backoff = rxBackoffMin
			}
			if err != nil {
				if ctx.Err() != nil { // shutting down
					return
				}
				var perr *os.PathError
				if errors.As(err, &perr) {
					return // device removed or fatal
				}
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					continue // ignore transient EOF
				}
				metrics.IncError(metrics.ErrSerialRead)
				l.Warn("serial_read_error", "error", err, "backoff", backoff)
				sleepFn(backoff)
				backoff *= 2
				if backoff > rxBackoffMax {
					backoff = rxBackoffMax
				}
			}
		}
	}()
	return w.SendCommand, func() { _ = sp.Close(); w.Close(); parser.Reset() }, nil
}
