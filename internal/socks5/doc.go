// Package socks5 performs the client side of a SOCKS5 CONNECT handshake
// over an already-open connection, using the wire types from
// github.com/txthinking/socks5.
package socks5
