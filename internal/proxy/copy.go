package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stats counts bytes relayed by CopyBidirectional.
type Stats struct {
	// Sent is bytes copied from left to right.
	Sent int64
	// Received is bytes copied from right to left.
	Received int64
}

// CopyBidirectional relays between left and right until either direction
// ends, then closes both so the other direction ends too. Canceling ctx
// also closes both.
//
// If idleTimeout is positive, the tunnel is closed once neither side has
// been read from or written to for that long.
//
// Errors caused by the teardown itself are not reported.
func CopyBidirectional(ctx context.Context, left, right net.Conn, idleTimeout time.Duration) (Stats, error) {
	if idleTimeout > 0 {
		left = newIdleConn(left, idleTimeout)
		right = newIdleConn(right, idleTimeout)
	}

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var st Stats
	var g errgroup.Group

	g.Go(func() error {
		n, err := copyBuffer(right, left)
		st.Sent = n
		closeBoth()
		return relayError(err)
	})
	g.Go(func() error {
		n, err := copyBuffer(left, right)
		st.Received = n
		closeBoth()
		return relayError(err)
	})

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return st, err
}

func relayError(err error) error {
	if err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

// idleConn pushes the connection deadline forward on every read and write.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func newIdleConn(c net.Conn, timeout time.Duration) *idleConn {
	_ = c.SetDeadline(time.Now().Add(timeout))
	return &idleConn{Conn: c, timeout: timeout}
}

func (c *idleConn) Read(b []byte) (int, error) {
	_ = c.Conn.SetDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	_ = c.Conn.SetDeadline(time.Now().Add(c.timeout))
	return c.Conn.Write(b)
}
