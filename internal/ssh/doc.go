// Package ssh carries tunnelled TCP connections over a single SSH
// transport, the way "ssh -D" does.
//
// A [Client] dials the SSH server lazily on first use, shares the transport
// between every tunnel, and opens one "direct-tcpip" channel per
// DialContext call. If the transport dies, the next dial reconnects.
//
// Authentication uses a password, private key files, the SSH agent, or a
// combination. Host keys are checked against a known_hosts file with
// trust on first use.
package ssh
