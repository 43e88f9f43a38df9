package dialer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/die-net/connectproxy/internal/socks5"
)

// SOCKS5ProxyDialer reaches targets through a SOCKS5 proxy.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      socks5.Auth
	direct    Dialer
}

// NewSOCKS5ProxyDialer returns a dialer for the SOCKS5 proxy at proxyAddr.
// A non-empty username enables username/password authentication.
func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, username, password string) *SOCKS5ProxyDialer {
	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		auth:      socks5.Auth{Username: username, Password: password},
		direct:    NewDirectDialer(cfg),
	}
}

// DialContext connects to the proxy and performs the SOCKS5 CONNECT
// handshake for address.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	c, err := d.direct.DialContext(ctx, network, d.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if d.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(d.cfg.NegotiationTimeout))
	}

	if err := socks5.ClientDial(c, d.auth, address); err != nil {
		_ = c.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, ctx.Err())
		}
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}

	if !stop() {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, ctx.Err())
	}
	_ = c.SetDeadline(time.Time{})
	return c, nil
}
