// Package pipeline implements the single-threaded receive -> classify ->
// synthesise-or-forward -> reply loop, the one place the wire codec, the
// blocklist trie, and the upstream client are driven together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/blazskufca/dnsfilter/internal/blocklist"
	"github.com/blazskufca/dnsfilter/internal/dnserr"
	"github.com/blazskufca/dnsfilter/internal/header"
	"github.com/blazskufca/dnsfilter/internal/message"
	"github.com/blazskufca/dnsfilter/internal/question"
	"github.com/blazskufca/dnsfilter/internal/upstream"
)

// pollInterval bounds how long a single ReadFromUDP call blocks before the
// loop re-checks ctx, so a shutdown signal is noticed promptly instead of
// waiting indefinitely for the next client datagram.
const pollInterval = 1 * time.Second

// minDatagramSize is the shortest datagram worth attempting to parse - a
// full header with no question section.
const minDatagramSize = 12

// Stats accumulates the four shutdown-summary counters. Only the pipeline's
// single goroutine ever touches it, so no synchronisation is needed.
type Stats struct {
	Total     uint64
	Blocked   uint64
	Forwarded uint64
	Errors    uint64
}

// Pipeline owns the client socket and drives one request at a time through
// parse, classify, and reply.
type Pipeline struct {
	conn     *net.UDPConn
	upstream string
	client   *upstream.Client
	trie     *blocklist.Trie
	logger   *slog.Logger
	stats    Stats
}

// New wires a Pipeline around an already-bound client socket.
func New(conn *net.UDPConn, upstreamAddr string, client *upstream.Client, trie *blocklist.Trie, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		conn:     conn,
		upstream: upstreamAddr,
		client:   client,
		trie:     trie,
		logger:   logger,
	}
}

// Stats returns a snapshot of the accumulated counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Run drives the receive loop until ctx is cancelled. A per-iteration read
// deadline is used rather than a blocking read with no deadline so that
// cancellation is observed between client datagrams instead of only at the
// next arrival; an in-flight upstream exchange is always allowed to finish
// before the loop rechecks ctx.
func (p *Pipeline) Run(ctx context.Context) error {
	buf := make([]byte, 512)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := p.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		n, clientAddr, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: reading client datagram: %v", dnserr.ErrSystem, err)
		}

		p.handle(buf[:n], clientAddr)
	}
}

// handle implements the per-datagram algorithm: parse, classify, and reply
// at most once, never letting a malformed or unanswerable query crash the
// loop. Undersized or unparsable datagrams, and queries whose negative
// response cannot be synthesised, get no reply.
func (p *Pipeline) handle(datagram []byte, clientAddr *net.UDPAddr) {
	if len(datagram) < minDatagramSize {
		p.logger.Debug("dropping undersized datagram", "from", clientAddr, "length", len(datagram))
		return
	}

	p.stats.Total++

	msg, err := message.Decode(datagram)
	if err != nil {
		if msg == nil {
			p.logger.Debug("dropping unparsable datagram", "from", clientAddr, "error", err)
			p.stats.Errors++
			return
		}
		p.logVerbose(clientAddr, msg.Header.ID, nil, "formerr")
		p.reply(msg, clientAddr, header.FormatError)
		return
	}

	if msg.Header.QDCOUNT == 0 || len(msg.Questions) == 0 {
		p.logVerbose(clientAddr, msg.Header.ID, nil, "formerr")
		p.reply(msg, clientAddr, header.FormatError)
		return
	}

	q := msg.Questions[0]
	if q.Type != question.A {
		p.logVerbose(clientAddr, msg.Header.ID, &q, "notimpl")
		p.reply(msg, clientAddr, header.NotImplemented)
		return
	}

	if p.trie.Blocked(q.Name) {
		p.stats.Blocked++
		p.logVerbose(clientAddr, msg.Header.ID, &q, "blocked")
		p.reply(msg, clientAddr, header.NameError)
		return
	}

	reply, err := p.client.Exchange(p.upstream, datagram)
	if err != nil {
		p.logger.Debug("upstream exchange failed", "from", clientAddr, "question", q.Name, "error", err)
		p.logVerbose(clientAddr, msg.Header.ID, &q, "servfail")
		p.reply(msg, clientAddr, header.ServerFailure)
		return
	}

	p.stats.Forwarded++
	p.logVerbose(clientAddr, msg.Header.ID, &q, "allowed-forwarded")
	if _, err := p.conn.WriteToUDP(reply, clientAddr); err != nil {
		p.logger.Debug("writing forwarded reply", "to", clientAddr, "error", err)
	}
}

// reply synthesises a negative response for rcode and sends it to the
// client, counting the outcome as an error. A failure to synthesise (e.g.
// the raw question section could not be recovered) is logged and the
// datagram is dropped rather than retried.
func (p *Pipeline) reply(msg *message.Message, clientAddr *net.UDPAddr, rcode header.ResponseCode) {
	p.stats.Errors++

	out, err := msg.EncodeNegative(rcode)
	if err != nil {
		p.logger.Debug("failed to synthesise negative response", "to", clientAddr, "rcode", rcode, "error", err)
		return
	}
	if _, err := p.conn.WriteToUDP(out, clientAddr); err != nil {
		p.logger.Debug("writing negative response", "to", clientAddr, "error", err)
	}
}

// logVerbose emits the per-request observability line at debug level, so it
// only surfaces when the logger's handler is configured for -verbose. q is
// nil when no question could be recovered (e.g. QDCOUNT is 0 or parsing
// failed early).
func (p *Pipeline) logVerbose(clientAddr *net.UDPAddr, id uint16, q *question.Question, decision string) {
	if q == nil {
		p.logger.Debug("request", "from", clientAddr, "id", id, "decision", decision)
		return
	}
	p.logger.Debug("request",
		"from", clientAddr,
		"id", id,
		"qname", q.Name,
		"qtype", q.Type,
		"decision", decision,
	)
}
