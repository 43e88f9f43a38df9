// Package testutil holds helper servers shared by the package tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
)

// StartEchoTCPServer starts a loopback server that echoes every connection
// until the peer closes it. The listener is closed when ctx is done or the
// test ends.
func StartEchoTCPServer(ctx context.Context, t *testing.T) net.Listener {
	t.Helper()

	ln := listen(ctx, t)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				_, _ = io.Copy(c, c)
			}()
		}
	}()

	return ln
}

// AssertEcho writes msg to w and expects to read it back from r.
func AssertEcho(t *testing.T, w io.Writer, r io.Reader, msg []byte) {
	t.Helper()

	if _, err := w.Write(msg); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, len(msg))
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, msg) {
		t.Fatalf("expected %q got %q", string(msg), string(buf))
	}
}

// ClosedAddr returns a loopback address nothing is listening on.
func ClosedAddr(t *testing.T) string {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func listen(ctx context.Context, t *testing.T) net.Listener {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	t.Cleanup(func() {
		stop()
		_ = ln.Close()
	})
	return ln
}
