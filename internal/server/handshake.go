package server

import (
	"context"
	"net"

	"github.com/openhobd/go-hobd-server/internal/stream"
)

// StreamHandshake runs the required TCP hello exchange.
func (s *Server) StreamHandshake(ctx context.Context, c net.Conn) error {
	return stream.Handshake(ctx, c, s.handshakeTimeout)
}
