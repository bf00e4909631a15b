package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/openhobd/go-hobd-server/internal/hobd"
	"github.com/openhobd/go-hobd-server/internal/hub"
	"github.com/openhobd/go-hobd-server/internal/stream"
)

// mockSend is a no-op backend send function.
func mockSend(hobd.Command) error { return nil }

// startInMemoryServer launches the server on :0 for benchmarks.
func startInMemoryServer(b *testing.B, h *hub.Hub) (*Server, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(WithHub(h), WithCodec(&stream.Codec{}), WithSend(mockSend), WithListenAddr(":0"))
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		b.Fatalf("server not ready")
	}
	return srv, cancel
}

func BenchmarkServerWriterFlush(b *testing.B) {
	h := hub.New()
	srv, cancel := startInMemoryServer(b, h)
	defer cancel()
	// Dial the server
	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		b.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	// Perform handshake manually
	_ = conn.SetDeadline(time.Now().Add(time.Second))
	if _, err := conn.Write([]byte("HOBDSTREAMv1")); err != nil {
		b.Fatalf("handshake write: %v", err)
	}
	if _, err := io.ReadFull(conn, make([]byte, 12)); err != nil {
		b.Fatalf("handshake read: %v", err)
	}
	_ = conn.SetDeadline(time.Time{})
	// Discard everything the writer flushes so the connection never stalls.
	go func() { _, _ = io.Copy(io.Discard, conn) }()

	// Wait for the hub to register the connection's client.
	for i := 0; i < 500 && h.Count() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if h.Count() == 0 {
		b.Fatalf("client not registered")
	}

	ev := telemetryEvent(3000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Broadcast(ev)
	}
	b.StopTimer()
}
