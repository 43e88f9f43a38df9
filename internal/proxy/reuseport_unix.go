//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package proxy

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// ReusePortSupported reports whether ReusePort can be honored here.
const ReusePortSupported = true

func reusePortControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
