// Package transport bootstraps the client UDP socket with SO_REUSEADDR so
// the forwarder can be restarted without waiting out a TIME_WAIT socket
// held by the previous instance.
package transport

import (
	"context"
	"fmt"
	"net"
)

// Listen binds a UDP4 socket on addr (host:port, typically ":<port>") with
// SO_REUSEADDR applied via platformControl.
func Listen(ctx context.Context, addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: platformControl}

	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", addr, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("binding %s: unexpected listener type %T", addr, pc)
	}

	return conn, nil
}
