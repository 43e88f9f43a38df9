package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"
)

// ContextDialer opens the TCP connection the SSH transport runs over.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Username string
	Password string
	Signers  []ssh.Signer

	// HostKeyCallback verifies the server host key. Required.
	HostKeyCallback ssh.HostKeyCallback

	// DialTimeout bounds the TCP connect to the SSH server. Zero means none.
	DialTimeout time.Duration
	// NegotiationTimeout bounds the SSH handshake. Zero means none.
	NegotiationTimeout time.Duration
}

func (c *ClientConfig) authMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if len(c.Signers) > 0 {
		methods = append(methods, ssh.PublicKeys(c.Signers...))
	}
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	return methods
}

// Client tunnels TCP connections through an SSH server.
type Client struct {
	addr   string
	cfg    ClientConfig
	dialer ContextDialer

	mu        sync.Mutex
	transport *ssh.Client
	sf        singleflight.Group
}

// NewClient validates cfg and returns a Client for the SSH server at addr.
// No connection is made until the first DialContext.
func NewClient(addr string, cfg ClientConfig, dialer ContextDialer) (*Client, error) {
	if addr == "" {
		return nil, errors.New("ssh client: missing ssh address")
	}
	if cfg.Username == "" {
		return nil, errors.New("ssh client: missing username")
	}
	if cfg.Password == "" && len(cfg.Signers) == 0 {
		return nil, errors.New("ssh client: missing password or key")
	}
	if cfg.HostKeyCallback == nil {
		return nil, errors.New("ssh client: missing host key callback")
	}
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.DialTimeout}
	}

	return &Client{addr: addr, cfg: cfg, dialer: dialer}, nil
}

// Addr returns the SSH server address.
func (c *Client) Addr() string {
	return c.addr
}

// DialContext opens a "direct-tcpip" channel to address.
//
// Canceling ctx closes the returned connection, not the shared transport.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("ssh dial %s %s: unsupported network", network, address)
	}

	transport, err := c.getTransport(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := transport.DialContext(ctx, "tcp", address)
	if err != nil {
		// The server answered but could not reach address; the
		// transport itself is fine.
		var openErr *ssh.OpenChannelError
		if errors.As(err, &openErr) {
			return nil, fmt.Errorf("ssh dial %s: %w", address, err)
		}

		c.dropTransport(transport)
		transport, err2 := c.getTransport(ctx)
		if err2 != nil {
			return nil, fmt.Errorf("ssh dial %s: %w", address, err)
		}
		ch, err = transport.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("ssh dial %s: %w", address, err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ch.Close()
	})
	return &channelConn{Conn: ch, stop: stop}, nil
}

// Close tears down the shared transport, if any. Open channels fail.
func (c *Client) Close() error {
	c.mu.Lock()
	transport := c.transport
	c.transport = nil
	c.mu.Unlock()

	if transport == nil {
		return nil
	}
	return transport.Close()
}

func (c *Client) getTransport(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport != nil {
		return transport, nil
	}

	ch := c.sf.DoChan("transport", func() (any, error) {
		c.mu.Lock()
		if c.transport != nil {
			t := c.transport
			c.mu.Unlock()
			return t, nil
		}
		c.mu.Unlock()

		// Detached from the caller: other dials may be waiting on this
		// result even if the first caller gives up.
		t, err := c.connect(context.Background())
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.transport = t
		c.mu.Unlock()

		go c.watch(t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ssh.Client), nil
	}
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DialTimeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("ssh transport dial %s: %w", c.addr, err)
	}

	if c.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.NegotiationTimeout))
	}

	cc, chans, reqs, err := ssh.NewClientConn(conn, c.addr, &ssh.ClientConfig{
		User:            c.cfg.Username,
		Auth:            c.cfg.authMethods(),
		HostKeyCallback: c.cfg.HostKeyCallback,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", c.addr, err)
	}

	if c.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}

	return ssh.NewClient(cc, chans, reqs), nil
}

// watch forgets t once the server hangs up so the next dial reconnects.
func (c *Client) watch(t *ssh.Client) {
	_ = t.Wait()
	c.dropTransport(t)
}

func (c *Client) dropTransport(t *ssh.Client) {
	c.mu.Lock()
	if c.transport == t {
		c.transport = nil
	}
	c.mu.Unlock()
	_ = t.Close()
}

// channelConn is one direct-tcpip channel.
type channelConn struct {
	net.Conn
	stop func() bool
}

func (c *channelConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
