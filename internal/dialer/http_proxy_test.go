package dialer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/die-net/connectproxy/internal/testutil"
)

// serveConnect answers one CONNECT on c by dialing the requested target and
// splicing the two connections. check may veto the request with a status.
func serveConnect(c net.Conn, check func(*http.Request) int) {
	br := bufio.NewReader(c)
	req, err := http.ReadRequest(br)
	if err != nil || req.Method != http.MethodConnect {
		return
	}
	_ = req.Body.Close()

	if check != nil {
		if code := check(req); code != http.StatusOK {
			_, _ = fmt.Fprintf(c, "HTTP/1.1 %d %s\r\n\r\n", code, http.StatusText(code))
			return
		}
	}

	dst, err := net.Dial("tcp", req.Host)
	if err != nil {
		_, _ = io.WriteString(c, "HTTP/1.1 502 Bad Gateway\r\n\r\n")
		return
	}
	defer dst.Close()

	_, _ = io.WriteString(c, "HTTP/1.1 200 Connection Established\r\n\r\n")

	go func() {
		_, _ = io.Copy(dst, br)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)
}

func newHTTPProxyDialer(t *testing.T, addr, user, pass string) *HTTPProxyDialer {
	t.Helper()

	d, err := NewHTTPProxyDialer(Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second},
		&url.URL{Scheme: "http", Host: addr}, user, pass)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestHTTPProxyDialerDialSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(ctx, t)
	upLn, waitUp := testutil.StartSingleAcceptServer(ctx, t, func(c net.Conn) {
		serveConnect(c, nil)
	})

	conn, err := newHTTPProxyDialer(t, upLn.Addr().String(), "", "").DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, conn, conn, []byte("hello"))
	_ = conn.Close()

	waitUp()
}

func TestHTTPProxyDialerSendsAuth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(ctx, t)
	upLn, waitUp := testutil.StartSingleAcceptServer(ctx, t, func(c net.Conn) {
		serveConnect(c, func(r *http.Request) int {
			// "user:secret"
			if r.Header.Get("Proxy-Authorization") != "Basic dXNlcjpzZWNyZXQ=" {
				return http.StatusProxyAuthRequired
			}
			return http.StatusOK
		})
	})

	conn, err := newHTTPProxyDialer(t, upLn.Addr().String(), "user", "secret").DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, conn, conn, []byte("authed"))
	_ = conn.Close()

	waitUp()
}

func TestHTTPProxyDialerDialNon2xx(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(ctx, t, func(c net.Conn) {
		br := bufio.NewReader(c)
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		_ = req.Body.Close()
		_, _ = io.WriteString(c, "HTTP/1.1 403 Forbidden\r\n\r\n")
	})

	if _, err := newHTTPProxyDialer(t, upLn.Addr().String(), "", "").DialContext(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error")
	}

	waitUp()
}

func TestHTTPProxyDialerKeepsEarlyTunnelBytes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(ctx, t, func(c net.Conn) {
		br := bufio.NewReader(c)
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		_ = req.Body.Close()
		// Response and first tunnel bytes in one write.
		_, _ = io.WriteString(c, "HTTP/1.1 200 Connection Established\r\n\r\nbanner")
	})

	conn, err := newHTTPProxyDialer(t, upLn.Addr().String(), "", "").DialContext(ctx, "tcp", "example.com:22")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	buf := make([]byte, len("banner"))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "banner" {
		t.Fatalf("got %q", buf)
	}

	waitUp()
}

func TestHTTPProxyDialerContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A proxy that accepts and then never answers.
	hold := make(chan struct{})
	upLn, waitUp := testutil.StartSingleAcceptServer(ctx, t, func(net.Conn) {
		<-hold
	})

	dialCtx, dialCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer dialCancel()

	d, err := NewHTTPProxyDialer(Config{}, &url.URL{Scheme: "http", Host: upLn.Addr().String()}, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.DialContext(dialCtx, "tcp", "example.com:443"); err == nil {
		t.Fatal("expected error after context deadline")
	}

	close(hold)
	waitUp()
}
