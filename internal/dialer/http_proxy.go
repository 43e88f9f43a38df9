package dialer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPProxyDialer reaches targets through an HTTP or HTTPS proxy using
// CONNECT.
type HTTPProxyDialer struct {
	cfg      Config
	proxyURL *url.URL
	auth     string
	direct   Dialer
}

// NewHTTPProxyDialer returns a dialer for the proxy at proxyURL. A non-empty
// username adds Basic Proxy-Authorization.
func NewHTTPProxyDialer(cfg Config, proxyURL *url.URL, username, password string) (*HTTPProxyDialer, error) {
	if proxyURL == nil || proxyURL.Hostname() == "" {
		return nil, errors.New("http proxy dialer: missing proxy host")
	}
	if proxyURL.Scheme != "http" && proxyURL.Scheme != "https" {
		return nil, fmt.Errorf("http proxy dialer: unsupported scheme %q", proxyURL.Scheme)
	}

	var auth string
	if username != "" {
		auth = "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
	}

	return &HTTPProxyDialer{
		cfg:      cfg,
		proxyURL: proxyURL,
		auth:     auth,
		direct:   NewDirectDialer(cfg),
	}, nil
}

// ProxyAddr returns the proxy host:port.
func (d *HTTPProxyDialer) ProxyAddr() string {
	return d.proxyURL.Host
}

// DialContext connects to the proxy, upgrades to TLS for https proxies, and
// issues CONNECT for address. The handshake deadline, if any, is cleared
// before returning.
func (d *HTTPProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("http proxy dial %s %s: unsupported network", network, address)
	}

	c, err := d.direct.DialContext(ctx, network, d.proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("http proxy: %w", err)
	}

	// Abort the handshake if ctx ends while we are blocked on the proxy.
	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if d.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(d.cfg.NegotiationTimeout))
	}

	if d.proxyURL.Scheme == "https" {
		tc := tls.Client(c, &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: d.proxyURL.Hostname(),
		})
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("http proxy tls handshake: %w", err)
		}
		c = tc
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: address},
		Host:   address,
		Header: make(http.Header),
	}
	if d.auth != "" {
		req.Header.Set("Proxy-Authorization", d.auth)
	}

	if err := req.Write(c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("http proxy connect write: %w", err)
	}

	br := bufio.NewReader(c)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("http proxy connect read: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		_ = c.Close()
		return nil, fmt.Errorf("http proxy connect %s: %s", address, resp.Status)
	}

	if !stop() {
		_ = c.Close()
		return nil, fmt.Errorf("http proxy connect %s: %w", address, ctx.Err())
	}
	_ = c.SetDeadline(time.Time{})

	if n := br.Buffered(); n > 0 {
		// The proxy already sent tunnel bytes behind its response.
		peek, _ := br.Peek(n)
		return &prefixConn{Conn: c, prefix: append([]byte(nil), peek...)}, nil
	}
	return c, nil
}

// prefixConn replays bytes that were read past the CONNECT response.
type prefixConn struct {
	net.Conn
	prefix []byte
}

func (c *prefixConn) Read(b []byte) (int, error) {
	if len(c.prefix) > 0 {
		n := copy(b, c.prefix)
		c.prefix = c.prefix[n:]
		return n, nil
	}
	return c.Conn.Read(b)
}
