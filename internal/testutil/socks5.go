package testutil

import (
	"context"
	"net"
	"testing"

	gosocks5 "github.com/armon/go-socks5"
)

// StartSOCKS5Server starts a real SOCKS5 server. With non-empty creds it
// requires username/password authentication.
func StartSOCKS5Server(ctx context.Context, t *testing.T, creds map[string]string) net.Listener {
	t.Helper()

	cfg := &gosocks5.Config{}
	if len(creds) > 0 {
		cfg.Credentials = gosocks5.StaticCredentials(creds)
	}
	srv, err := gosocks5.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ln := listen(ctx, t)
	go func() { _ = srv.Serve(ln) }()
	return ln
}
