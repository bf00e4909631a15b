package transport

import (
	"io"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/stream"
)

// EventBatchEncoder can encode event batches efficiently (either to bytes or
// directly to a writer).
type EventBatchEncoder interface {
	Encode([]hobd.Event) []byte
	EncodeTo(w io.Writer, events []hobd.Event) (int, error)
}

// EventDecoder drains decoded events from a connection.
type EventDecoder interface {
	Next() (hobd.Event, error)
}

// CommandSink is a generic adapter command transmission target.
type CommandSink interface {
	SendCommand(hobd.Command) error
}

// Compile-time assertions that the stream codec satisfies the capabilities.
var (
	_ EventBatchEncoder = (*stream.Codec)(nil)
	_ EventDecoder      = (*stream.Reader)(nil)
)
