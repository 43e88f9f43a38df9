package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on addr. Accepted connections get cfg.KeepAlive, and
// cfg.ReusePort sets SO_REUSEPORT where the platform has it.
func ListenTCP(ctx context.Context, addr string, cfg Config) (net.Listener, error) {
	lc := net.ListenConfig{KeepAliveConfig: cfg.KeepAlive}
	if cfg.ReusePort {
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	return ln, nil
}
