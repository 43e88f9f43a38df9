// Package proxy serves CONNECT-only forward proxy connections.
//
// Each accepted connection gets its own goroutine which reads the CONNECT
// target, dials it, answers 200 and then relays bytes both ways until
// either side is done. Anything other than CONNECT is answered with 405.
package proxy
