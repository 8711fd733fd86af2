// Package upstream implements the one-shot UDP exchange with a configured
// resolver: resolve its address, send the query with a bounded retry
// budget, and validate the reply's transaction identity before handing the
// bytes back to the pipeline.
package upstream

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
)

const (
	receiveTimeout = 5 * time.Second
	maxAttempts    = 3
	maxReplySize   = 512
	dnsPort        = 53
)

// Client exchanges query bytes with a single upstream resolver.
type Client struct {
	logger *slog.Logger
}

// New returns a Client that logs through logger.
func New(logger *slog.Logger) *Client {
	return &Client{logger: logger}
}

// Exchange resolves addr (a dotted-quad IPv4 literal or a hostname), sends
// query to it on port 53, and returns the validated reply bytes. It never
// interprets the reply's body; the caller treats the returned slice as
// opaque bytes destined for the client socket.
func (c *Client) Exchange(addr string, query []byte) ([]byte, error) {
	ip, err := resolveIPv4(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving upstream %q: %v", dnserr.ErrUpstream, addr, err)
	}

	serverAddr := &net.UDPAddr{IP: ip, Port: dnsPort}

	conn, err := net.DialUDP("udp4", nil, serverAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing upstream %s: %v", dnserr.ErrUpstream, serverAddr, err)
	}
	defer conn.Close()

	var lastErr error
	buf := make([]byte, maxReplySize)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reply, n, err := c.attempt(conn, query, buf)
		if err != nil {
			lastErr = err
			c.logger.Debug("upstream attempt failed", "attempt", attempt, "error", err)
			continue
		}

		if err := validateReply(query, reply[:n]); err != nil {
			lastErr = err
			c.logger.Debug("upstream reply failed validation", "attempt", attempt, "error", err)
			continue
		}

		const headerSize, tcBit = 12, 0x02
		if n >= headerSize && reply[2]&tcBit != 0 {
			c.logger.Debug("upstream reply is truncated, forwarding as-is", "attempt", attempt)
		}

		out := make([]byte, n)
		copy(out, reply[:n])
		return out, nil
	}

	return nil, fmt.Errorf("%w: exhausted %d attempts against %s: %v", dnserr.ErrUpstream, maxAttempts, serverAddr, lastErr)
}

// attempt performs a single send/receive round trip on an already-dialed
// socket. A short write is treated as a failure; no partial-send retry is
// attempted within a single attempt.
func (c *Client) attempt(conn *net.UDPConn, query []byte, buf []byte) ([]byte, int, error) {
	sent, err := conn.Write(query)
	if err != nil {
		return nil, 0, fmt.Errorf("writing query: %w", err)
	}
	if sent != len(query) {
		return nil, 0, fmt.Errorf("short write: sent %d of %d bytes", sent, len(query))
	}

	if err := conn.SetReadDeadline(time.Now().Add(receiveTimeout)); err != nil {
		return nil, 0, fmt.Errorf("setting read deadline: %w", err)
	}

	n, err := conn.Read(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("reading reply: %w", err)
	}
	return buf, n, nil
}

// validateReply checks the minimal contract a usable reply must satisfy:
// at least a full header, matching transaction id, and QR set. A set TC bit
// is accepted - the caller forwards the truncated answer as-is.
func validateReply(query, reply []byte) error {
	const headerSize = 12
	if len(reply) < headerSize {
		return fmt.Errorf("%w: reply is %d bytes, shorter than a header", dnserr.ErrUpstream, len(reply))
	}
	if len(query) < 2 {
		return fmt.Errorf("%w: query too short to carry an id", dnserr.ErrUpstream)
	}

	if reply[0] != query[0] || reply[1] != query[1] {
		return fmt.Errorf("%w: reply id %02x%02x does not match query id %02x%02x",
			dnserr.ErrUpstream, reply[0], reply[1], query[0], query[1])
	}

	const qrBit = 0x80
	if reply[2]&qrBit == 0 {
		return fmt.Errorf("%w: reply QR bit not set", dnserr.ErrUpstream)
	}

	return nil
}

// resolveIPv4 returns addr directly if it parses as an IPv4 literal,
// otherwise performs a single synchronous lookup and returns the first
// IPv4 result.
func resolveIPv4(addr string) (net.IP, error) {
	if ip := net.ParseIP(addr); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%s is not an IPv4 address", addr)
	}

	ips, err := net.LookupIP(addr)
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", addr, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address found for %q", addr)
}
