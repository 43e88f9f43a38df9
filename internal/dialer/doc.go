// Package dialer opens the outbound side of a tunnel.
//
// Targets are reached either directly or through an upstream proxy: an
// HTTP(S) proxy speaking CONNECT, a SOCKS5 proxy, or an SSH server using
// direct-tcpip channels. All of them satisfy [Dialer].
package dialer
