package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup plus TCP connect. Zero means no timeout.
	DialTimeout time.Duration
	// NegotiationTimeout bounds upstream handshakes (TLS, CONNECT, SOCKS5,
	// SSH). Zero means no timeout.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	SSHKeyPath        string
	SSHKnownHostsPath string
}
