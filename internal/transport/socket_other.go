//go:build !linux && !darwin

package transport

import "syscall"

// platformControl is a no-op on platforms without a golang.org/x/sys
// binding wired in for SO_REUSEADDR (e.g. windows); the listener still
// binds correctly, it just won't reuse a lingering TIME_WAIT address.
func platformControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
