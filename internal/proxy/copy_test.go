package proxy

import (
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayResult struct {
	st  Stats
	err error
}

// startRelay wires client <-> [left relay right] <-> server over pipes.
func startRelay(ctx context.Context, t *testing.T, idleTimeout time.Duration) (client, server net.Conn, done <-chan relayResult) {
	t.Helper()

	client, left := net.Pipe()
	right, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	ch := make(chan relayResult, 1)
	go func() {
		st, err := CopyBidirectional(ctx, left, right, idleTimeout)
		ch <- relayResult{st: st, err: err}
	}()
	return client, server, ch
}

func waitRelay(t *testing.T, done <-chan relayResult) relayResult {
	t.Helper()

	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not finish")
		return relayResult{}
	}
}

func TestCopyBidirectional(t *testing.T) {
	t.Parallel()

	client, server, done := startRelay(context.Background(), t, 0)

	go func() { _, _ = client.Write([]byte("ping")) }()
	buf := make([]byte, 4)
	_, err := io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	go func() { _, _ = server.Write([]byte("pong!")) }()
	buf = make([]byte, 5)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "pong!", string(buf))

	require.NoError(t, client.Close())

	r := waitRelay(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, int64(4), r.st.Sent)
	assert.Equal(t, int64(5), r.st.Received)
}

func TestCopyBidirectionalClosePropagates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		closeServer bool
	}{
		{name: "client closes"},
		{name: "server closes", closeServer: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, server, done := startRelay(context.Background(), t, 0)

			closer, other := client, server
			if tt.closeServer {
				closer, other = server, client
			}
			require.NoError(t, closer.Close())

			_ = other.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, err := other.Read(make([]byte, 1))
			require.ErrorIs(t, err, io.EOF)

			r := waitRelay(t, done)
			require.NoError(t, r.err)
		})
	}
}

func TestCopyBidirectionalContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	client, _, done := startRelay(ctx, t, 0)

	cancel()

	r := waitRelay(t, done)
	require.ErrorIs(t, r.err, context.Canceled)

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := client.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

func TestCopyBidirectionalIdleTimeout(t *testing.T) {
	t.Parallel()

	client, server, done := startRelay(context.Background(), t, 50*time.Millisecond)

	// Traffic within the timeout keeps the tunnel up.
	for range 3 {
		time.Sleep(20 * time.Millisecond)
		go func() { _, _ = client.Write([]byte("x")) }()
		_ = server.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, err := io.ReadFull(server, make([]byte, 1))
		require.NoError(t, err)
	}

	r := waitRelay(t, done)
	require.ErrorIs(t, r.err, os.ErrDeadlineExceeded)
	assert.Equal(t, int64(3), r.st.Sent)
}
