// Package connect recognizes the one request this proxy understands: an
// HTTP CONNECT request line naming a host:port target.
//
// Recognition is deliberately shallow. The first eight bytes must be exactly
// "CONNECT ", the target is everything up to the next space, and nothing past
// that is looked at. Headers are never parsed.
package connect
