package dialer

import (
	"context"
	"fmt"
	"net"
)

type directDialer struct {
	nd net.Dialer
}

// NewDirectDialer dials targets itself, applying the configured timeout and
// TCP keepalive.
func NewDirectDialer(cfg Config) Dialer {
	return &directDialer{nd: net.Dialer{
		Timeout:         cfg.DialTimeout,
		KeepAliveConfig: cfg.KeepAlive,
	}}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}
	return conn, nil
}
