package hobd

import (
	"bytes"

	"github.com/openhobd/go-hobd-server/internal/metrics"
)

// Checksum computes the trailing check byte of a frame from its four header
// bytes and its payload.
type Checksum func(header, payload []byte) byte

// Sum8 is the plain additive checksum: sum of header and payload mod 256.
func Sum8(header, payload []byte) byte {
	var s byte
	for _, b := range header {
		s += b
	}
	for _, b := range payload {
		s += b
	}
	return s
}

// DeviceChecksum matches the adapter firmware scheme: header and payload are
// each reduced to 0xFF-(sum-1) and the two results are added mod 256.
func DeviceChecksum(header, payload []byte) byte {
	return complementSum(header) + complementSum(payload)
}

func complementSum(b []byte) byte {
	var s byte
	for _, v := range b {
		s += v
	}
	return 0xFF - (s - 1)
}

// Frame is one complete adapter frame with markers and check byte stripped.
// Payload is owned by the receiver.
type Frame struct {
	Type    byte
	Payload []byte
}

var frameMarker = []byte{Marker0, Marker1}

// Parser extracts frames from a byte stream fed in arbitrary chunks. It
// tolerates leading noise and resynchronizes on the frame marker; the frame
// sequence it produces does not depend on how the stream was chunked.
//
// With no Checksum configured the check byte is skipped, not verified.
// A Parser is not safe for concurrent use; the reading goroutine owns it.
type Parser struct {
	buf bytes.Buffer
	sum Checksum
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithChecksum enables check byte verification with sum.
func WithChecksum(sum Checksum) ParserOption {
	return func(p *Parser) { p.sum = sum }
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Feed appends raw transport bytes. Call Next until it reports no frame.
func (p *Parser) Feed(b []byte) {
	_, _ = p.buf.Write(b)
}

// Buffered reports how many fed bytes are held awaiting a complete frame.
func (p *Parser) Buffered() int { return p.buf.Len() }

// Reset discards any partially buffered frame, e.g. on transport teardown.
func (p *Parser) Reset() { p.buf.Reset() }

// Next scans the buffered stream and returns the next complete frame, or
// ok=false when more bytes are needed. Frames failing checksum verification
// are counted as malformed and skipped.
func (p *Parser) Next() (Frame, bool) {
	for {
		p.compact()
		data := p.buf.Bytes()
		if len(data) < HeaderSize {
			return Frame{}, false
		}

		// align to marker
		i := bytes.Index(data, frameMarker)
		if i < 0 {
			// keep last byte in case the next chunk starts with the
			// second marker byte
			if p.buf.Len() > 1 {
				last := data[len(data)-1]
				p.buf.Reset()
				_ = p.buf.WriteByte(last)
			}
			return Frame{}, false
		}
		if i > 0 {
			p.buf.Next(i)
			continue
		}

		// marker at start; need full header, then the declared payload
		// plus check byte. The marker stays buffered while waiting.
		n := int(data[3])
		needed := HeaderSize + n + ChecksumSize
		if len(data) < needed {
			return Frame{}, false
		}

		if p.sum != nil {
			want := p.sum(data[:HeaderSize], data[HeaderSize:HeaderSize+n])
			if data[needed-1] != want {
				// checksum mismatch: count, drop the marker, resync
				metrics.IncMalformed()
				p.buf.Next(2)
				continue
			}
		}

		f := Frame{
			Type:    data[2],
			Payload: append([]byte(nil), data[HeaderSize:HeaderSize+n]...),
		}
		p.buf.Next(needed)
		return f, true
	}
}

// largeBufferReclaimThreshold bounds how much idle capacity the stream
// buffer may retain once drained. A burst of misaligned garbage can grow the
// buffer well past steady-state needs; dropping the backing array once it is
// empty returns that memory instead of holding it for the process lifetime.
const largeBufferReclaimThreshold = 16 * 1024

// compact reclaims consumed prefix capacity when the buffer grows too large
// relative to unread bytes.
func (p *Parser) compact() {
	data := p.buf.Bytes()
	if len(data) == 0 {
		if cap(data) > largeBufferReclaimThreshold {
			p.buf = bytes.Buffer{}
		}
		return
	}
	// If buffer size < 1KB, skip.
	if len(data) < 1024 {
		return
	}
	// If unread < 25% of capacity, compact.
	if cap(data) > 0 && len(data)*4 < cap(data) {
		clone := make([]byte, len(data))
		copy(clone, data)
		p.buf.Reset()
		_, _ = p.buf.Write(clone)
	}
}

// EncodeFrame builds a complete wire frame around typ and payload. The check
// byte is computed with sum, or left zero when sum is nil. Payload must not
// exceed MaxPayload bytes.
func EncodeFrame(typ byte, payload []byte, sum Checksum) []byte {
	n := len(payload)
	f := make([]byte, HeaderSize+n+ChecksumSize)
	f[0] = Marker0
	f[1] = Marker1
	f[2] = typ
	f[3] = byte(n)
	copy(f[HeaderSize:], payload)
	if sum != nil {
		f[HeaderSize+n] = sum(f[:HeaderSize], f[HeaderSize:HeaderSize+n])
	}
	return f
}
