package proxy

import (
	"net"
	"time"

	"github.com/die-net/connectproxy/internal/dialer"
)

type Config struct {
	Dialer dialer.Dialer

	// ProxyAgent is sent in the Proxy-agent header of 200 responses.
	// Empty means connect.DefaultProxyAgent.
	ProxyAgent string

	// MaxTargetLength caps the host:port bytes read from a request. Zero
	// means connect.DefaultMaxTargetLength.
	MaxTargetLength int

	// NegotiationTimeout bounds reading the request and writing the
	// response. Zero means no timeout.
	NegotiationTimeout time.Duration

	// IdleTimeout closes a tunnel with no traffic in either direction for
	// this long. Zero means no timeout.
	IdleTimeout time.Duration

	KeepAlive net.KeepAliveConfig
	ReusePort bool
}
