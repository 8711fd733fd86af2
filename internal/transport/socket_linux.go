//go:build linux

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// platformControl sets SO_REUSEADDR on the listening socket before bind, so
// a restarted process doesn't have to wait out the prior socket's
// TIME_WAIT state.
func platformControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	if sockErr != nil {
		return fmt.Errorf("setting SO_REUSEADDR: %w", sockErr)
	}
	return nil
}
