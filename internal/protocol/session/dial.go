package session

import (
	"context"
	"fmt"
	"net"

	"github.com/danmuck/lurk/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Dial connects to a LURK server over TCP. A failed dial is returned as is;
// callers decide whether to try again.
func Dial(ctx context.Context, addr string, cfg Config, opts protocol.Options) (*Conn, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("session: dial %s: %w", addr, err)
	}
	log.Debug().Str("addr", addr).Msg("connected")
	return NewConn(nc, cfg, opts), nil
}
