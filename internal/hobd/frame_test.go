package hobd

import (
	"bytes"
	"testing"
)

// telemetryPayload returns a fixed 16 byte live data payload
// (3000 rpm, 50 km/h, -10.0C coolant, 20.0C intake, 100.0 kPa,
// 0% throttle, 14.28 V, 0.500 V O2, flags AC|VTEC).
func telemetryPayload() []byte {
	return []byte{
		0x0B, 0xB8,
		0x32,
		0xFF, 0x9C,
		0x00, 0xC8,
		0x03, 0xE8,
		0x00, 0x00,
		0x05, 0x94,
		0x01, 0xF4,
		0x05,
	}
}

func drain(p *Parser) []Frame {
	var out []Frame
	for {
		f, ok := p.Next()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

func TestParser_RoundTrip_Chunked(t *testing.T) {
	want := []Frame{
		{Type: TypeTelemetry, Payload: telemetryPayload()},
		{Type: TypeTroubleCodes, Payload: []byte{2, 0x01, 0x13}},
		{Type: TypeAck, Payload: []byte{1}},
		{Type: 0x42, Payload: []byte{0xDE, 0xAD}}, // unknown types still framed
	}

	stream := make([]byte, 0, 64)
	for _, fr := range want {
		stream = append(stream, EncodeFrame(fr.Type, fr.Payload, Sum8)...)
	}

	p := NewParser(WithChecksum(Sum8))
	got := make([]Frame, 0, len(want))

	// Feed in irregular small chunks to stress marker alignment & partials.
	chunkSizes := []int{1, 2, 3, 4, 5, 7, 11}
	cs := 0
	for pos := 0; pos < len(stream); {
		n := chunkSizes[cs%len(chunkSizes)]
		cs++
		if pos+n > len(stream) {
			n = len(stream) - pos
		}
		p.Feed(stream[pos : pos+n])
		pos += n
		got = append(got, drain(p)...)
	}

	if len(got) != len(want) {
		t.Fatalf("decoded %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Type != want[i].Type || !bytes.Equal(got[i].Payload, want[i].Payload) {
			t.Fatalf("frame %d mismatch\n got  type=0x%02X payload=% X\n want type=0x%02X payload=% X",
				i, got[i].Type, got[i].Payload, want[i].Type, want[i].Payload)
		}
	}
	if p.Buffered() != 0 {
		t.Fatalf("expected empty buffer after clean stream, got %d bytes", p.Buffered())
	}
}

func TestParser_BackToBackFrames(t *testing.T) {
	p := NewParser()
	stream := append(EncodeFrame(TypeAck, []byte{1}, nil), EncodeFrame(TypeError, []byte{DevErrScan}, nil)...)
	p.Feed(stream)

	got := drain(p)
	if len(got) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(got))
	}
	if got[0].Type != TypeAck || got[1].Type != TypeError {
		t.Fatalf("unexpected frame order: 0x%02X, 0x%02X", got[0].Type, got[1].Type)
	}
}

func TestParser_NoiseBeforeFrame(t *testing.T) {
	p := NewParser()
	stream := append([]byte{0x00, 0x13, 0x37, 0xFF}, EncodeFrame(TypeAck, []byte{1}, nil)...)
	p.Feed(stream)

	got := drain(p)
	if len(got) != 1 || got[0].Type != TypeAck {
		t.Fatalf("expected exactly one ack frame, got %+v", got)
	}
	if p.Buffered() != 0 {
		t.Fatalf("expected noise consumed, %d bytes left", p.Buffered())
	}
}

func TestParser_GarbageCollapsesToOneByte(t *testing.T) {
	p := NewParser()
	p.Feed([]byte{0x01, 0x02, 0x03, 0x04, 0x05})
	if _, ok := p.Next(); ok {
		t.Fatal("unexpected frame from garbage")
	}
	if p.Buffered() != 1 {
		t.Fatalf("expected garbage collapsed to 1 buffered byte, got %d", p.Buffered())
	}
}

func TestParser_MarkerSplitAcrossFeeds(t *testing.T) {
	p := NewParser()
	frame := EncodeFrame(TypeAck, []byte{1}, nil)

	// First chunk ends exactly on the first marker byte.
	p.Feed([]byte{0x10, 0x20, 0x30, frame[0]})
	if _, ok := p.Next(); ok {
		t.Fatal("unexpected frame before marker complete")
	}
	if p.Buffered() != 1 {
		t.Fatalf("expected only the trailing marker byte kept, got %d", p.Buffered())
	}

	p.Feed(frame[1:])
	got := drain(p)
	if len(got) != 1 || got[0].Type != TypeAck {
		t.Fatalf("expected ack frame after marker completed, got %+v", got)
	}
}

func TestParser_IncompleteFrameKeepsMarker(t *testing.T) {
	p := NewParser()
	frame := EncodeFrame(TypeTelemetry, telemetryPayload(), nil) // 21 bytes

	p.Feed(frame[:12])
	if _, ok := p.Next(); ok {
		t.Fatal("unexpected frame from partial input")
	}
	if p.Buffered() != 12 {
		t.Fatalf("partial frame must stay buffered intact, got %d bytes", p.Buffered())
	}

	p.Feed(frame[12:])
	got := drain(p)
	if len(got) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0].Payload, telemetryPayload()) {
		t.Fatalf("payload mismatch: % X", got[0].Payload)
	}
}

func TestParser_ZeroLengthPayload(t *testing.T) {
	p := NewParser()
	p.Feed(EncodeFrame(TypeAck, nil, nil))
	got := drain(p)
	if len(got) != 1 || got[0].Type != TypeAck || len(got[0].Payload) != 0 {
		t.Fatalf("expected empty ack frame, got %+v", got)
	}
}

func TestParser_MaxPayload(t *testing.T) {
	payload := make([]byte, MaxPayload)
	for i := range payload {
		payload[i] = byte(i)
	}
	p := NewParser(WithChecksum(Sum8))
	p.Feed(EncodeFrame(0x42, payload, Sum8))
	got := drain(p)
	if len(got) != 1 || !bytes.Equal(got[0].Payload, payload) {
		t.Fatalf("max payload frame mismatch, got %d frames", len(got))
	}
}

func TestParser_ChecksumMismatchResync(t *testing.T) {
	bad := EncodeFrame(TypeAck, []byte{1}, Sum8)
	bad[len(bad)-1] ^= 0xFF
	good := EncodeFrame(TypeTelemetry, telemetryPayload(), Sum8)

	p := NewParser(WithChecksum(Sum8))
	p.Feed(bad)
	if got := drain(p); len(got) != 0 {
		t.Fatalf("corrupted frame must yield nothing, got %d frames", len(got))
	}

	p.Feed(good)
	got := drain(p)
	if len(got) != 1 || got[0].Type != TypeTelemetry {
		t.Fatalf("expected recovery to the next valid frame, got %+v", got)
	}
}

func TestParser_Reset(t *testing.T) {
	p := NewParser()
	p.Feed(EncodeFrame(TypeTelemetry, telemetryPayload(), nil)[:10])
	p.Reset()
	if p.Buffered() != 0 {
		t.Fatalf("expected empty buffer after reset, got %d", p.Buffered())
	}
	p.Feed(EncodeFrame(TypeAck, []byte{1}, nil))
	if got := drain(p); len(got) != 1 {
		t.Fatalf("decoded %d frames after reset, want 1", len(got))
	}
}

func TestChecksumValues(t *testing.T) {
	header := []byte{Marker0, Marker1, TypeAck, 0x01}
	payload := []byte{0x01}
	if got := Sum8(header, payload); got != 0x84 {
		t.Fatalf("Sum8 = 0x%02X, want 0x84", got)
	}
	if got := DeviceChecksum(header, payload); got != 0x7C {
		t.Fatalf("DeviceChecksum = 0x%02X, want 0x7C", got)
	}
}

func TestParser_DeviceChecksumRoundTrip(t *testing.T) {
	p := NewParser(WithChecksum(DeviceChecksum))
	p.Feed(EncodeFrame(TypeTroubleCodes, []byte{1, 0x07}, DeviceChecksum))
	got := drain(p)
	if len(got) != 1 || got[0].Type != TypeTroubleCodes {
		t.Fatalf("expected one trouble code frame, got %+v", got)
	}
}

func TestEncodeFrame_NilChecksumWritesZero(t *testing.T) {
	frame := EncodeFrame(TypeAck, []byte{1}, nil)
	if frame[len(frame)-1] != 0 {
		t.Fatalf("expected zero check byte, got 0x%02X", frame[len(frame)-1])
	}
	if len(frame) != MinFrameSize+1 {
		t.Fatalf("frame length = %d, want %d", len(frame), MinFrameSize+1)
	}
}
