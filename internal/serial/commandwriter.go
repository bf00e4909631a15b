package serial

import (
	"context"
	"errors"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/logging"
	"github.com/openhobd/go-hobd-server/internal/metrics"
	"github.com/openhobd/go-hobd-server/internal/transport"
)

var ErrTxOverflow = errors.New("serial tx overflow")

// CommandWriter funnels all adapter writes through one goroutine. Commands
// go out as single bare bytes, no framing.
type CommandWriter struct{ base *transport.AsyncTx }

// NewCommandWriter creates a CommandWriter with a buffered channel of size buf.
func NewCommandWriter(parent context.Context, sp Port, buf int) *CommandWriter {
	send := func(cmd hobd.Command) error {
		_, err := sp.Write([]byte{byte(cmd)})
		return err
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSerialWrite)
			logging.L().Error("serial_write_error", "error", err)
		},
		OnAfter: func() { metrics.IncCommandTx() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSerialOverflow)
			return ErrTxOverflow
		},
	}
	return &CommandWriter{base: transport.NewAsyncTx(parent, buf, send, hooks)}
}

// SendCommand queues a command for asynchronous write (drops with ErrTxOverflow if buffer full).
func (w *CommandWriter) SendCommand(cmd hobd.Command) error { return w.base.SendCommand(cmd) }

// Close stops the writer and waits for pending goroutine exit.
func (w *CommandWriter) Close() { w.base.Close() }
