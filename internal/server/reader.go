package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/hub"
	"github.com/openhobd/go-hobd-server/internal/metrics"
	"github.com/openhobd/go-hobd-server/internal/serial"
)

// startReader launches the goroutine forwarding raw client command bytes to
// the backend. Commands are single bytes and fire-and-forget; responses come
// back through the broadcast stream, never on this path.
func (s *Server) startReader(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close() }()
		buf := make([]byte, 16)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
			n, err := conn.Read(buf)
			for _, b := range buf[:n] {
				cmd := hobd.Command(b)
				if s.commandFilter != nil && !s.commandFilter(cmd) {
					logger.Debug("command_filtered", "command", fmt.Sprintf("0x%02X", b))
					continue
				}
				metrics.IncTCPRx()
				if err := s.Send(cmd); err != nil {
					if errors.Is(err, serial.ErrTxOverflow) {
						s.totalBackendOverflow.Add(1)
						logger.Debug("backend_overflow_drop", "command", fmt.Sprintf("0x%02X", b))
					} else {
						wrap := fmt.Errorf("%w: %v", ErrBackendTx, err)
						s.setError(wrap)
						s.totalBackendErrors.Add(1)
						logger.Error("backend_tx_error", "error", wrap, "command", fmt.Sprintf("0x%02X", b))
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					return
				}
				if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
					wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
					metrics.IncError(mapErrToMetric(wrap))
					s.setError(wrap)
					return
				}
				// read deadline lapsed on an idle client; keep waiting
			}
			select {
			case <-ctxDone:
				return
			default:
			}
		}
	}()
}
