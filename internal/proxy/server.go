package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/die-net/connectproxy/internal/connect"
	"github.com/die-net/connectproxy/internal/logger"
)

// Server accepts CONNECT requests and tunnels them to their targets.
type Server struct {
	ctx context.Context
	cfg Config
}

// NewServer returns a Server. Canceling ctx tears down every open tunnel.
func NewServer(ctx context.Context, cfg Config) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Server{ctx: ctx, cfg: cfg}
}

// Serve accepts connections on ln until Accept fails, handling each one on
// its own goroutine. It always returns a non-nil error.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(c)
	}
}

func (s *Server) serveConn(client net.Conn) {
	start := time.Now()
	peer := client.RemoteAddr()

	// Unblocks a pending request read on shutdown; the relay has its own
	// hook once it starts.
	stop := context.AfterFunc(s.ctx, func() {
		_ = client.Close()
	})

	up, target, err := s.negotiate(client)
	stop()
	if err != nil {
		_ = client.Close()
		logNegotiationError(peer, target, err)
		return
	}

	logger.Debug("proxy: tunnel open client=%s target=%s", peer, target)

	st, err := CopyBidirectional(s.ctx, client, up, s.cfg.IdleTimeout)
	if err != nil {
		logger.Warn("proxy: tunnel error client=%s target=%s sent=%d received=%d err=%v",
			peer, target, st.Sent, st.Received, err)
		return
	}
	logger.Debug("proxy: tunnel closed client=%s target=%s sent=%d received=%d duration=%s",
		peer, target, st.Sent, st.Received, time.Since(start).Round(time.Millisecond))
}

// negotiate reads the CONNECT request from client, dials the target and
// writes the 200 response. On error no relay must be started; client is
// left for the caller to close.
func (s *Server) negotiate(client net.Conn) (net.Conn, connect.Target, error) {
	if s.cfg.NegotiationTimeout > 0 {
		_ = client.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	target, err := connect.ReadTarget(client, s.cfg.MaxTargetLength)
	if errors.Is(err, connect.ErrUnsupportedMethod) {
		if _, werr := connect.WriteUnsupportedMethod(client); werr != nil {
			return nil, target, fmt.Errorf("%w (writing 405: %w)", err, werr)
		}
		return nil, target, err
	}
	if err != nil {
		return nil, target, err
	}

	up, err := s.cfg.Dialer.DialContext(s.ctx, "tcp", target.Addr())
	if err != nil {
		return nil, target, err
	}

	if _, err := connect.WriteEstablished(client, s.cfg.ProxyAgent); err != nil {
		_ = up.Close()
		return nil, target, fmt.Errorf("write 200: %w", err)
	}

	if s.cfg.NegotiationTimeout > 0 {
		_ = client.SetDeadline(time.Time{})
	}
	return up, target, nil
}

func logNegotiationError(peer net.Addr, target connect.Target, err error) {
	switch {
	case errors.Is(err, connect.ErrUnsupportedMethod):
		logger.Debug("proxy: rejected client=%s err=%v", peer, err)
	case errors.Is(err, connect.ErrMalformedTarget), errors.Is(err, connect.ErrReadFailed):
		logger.Debug("proxy: bad request client=%s err=%v", peer, err)
	default:
		logger.Warn("proxy: connect failed client=%s target=%s err=%v", peer, target, err)
	}
}
