// Package stream implements the TCP wire protocol between the server and
// its clients: a fixed hello exchange, then a one-way stream of CBOR encoded
// events. Client commands travel the other way as bare bytes and never pass
// through this codec.
package stream

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/openhobd/go-hobd-server/internal/hobd"
)

// Codec encodes event batches as back-to-back CBOR documents. Stateless and
// safe for concurrent use.
type Codec struct{}

// Encode packs events into a single buffer.
func (c *Codec) Encode(events []hobd.Event) []byte {
	if len(events) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Grow(len(events) * 64)
	_, _ = c.EncodeTo(&buf, events)
	return buf.Bytes()
}

// EncodeTo writes the wire representation of events to w and returns bytes
// written. Every event is one self-delimiting CBOR document.
func (c *Codec) EncodeTo(w io.Writer, events []hobd.Event) (int, error) {
	cw := &countWriter{w: w}
	enc := cbor.NewEncoder(cw)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return cw.n, fmt.Errorf("stream encode event: %w", err)
		}
	}
	return cw.n, nil
}

type countWriter struct {
	w io.Writer
	n int
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += n
	return n, err
}

// Reader decodes the event stream on the client side of a connection. The
// decoder buffers, so a connection needs exactly one Reader for its
// lifetime. Not safe for concurrent use.
type Reader struct {
	dec *cbor.Decoder
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next event. It returns io.EOF at a clean document
// boundary and io.ErrUnexpectedEOF when the stream ends mid-document.
func (r *Reader) Next() (hobd.Event, error) {
	var ev hobd.Event
	if err := r.dec.Decode(&ev); err != nil {
		return hobd.Event{}, err
	}
	return ev, nil
}
