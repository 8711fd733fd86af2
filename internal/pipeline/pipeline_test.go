package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/blazskufca/dnsfilter/internal/blocklist"
	"github.com/blazskufca/dnsfilter/internal/header"
	"github.com/blazskufca/dnsfilter/internal/question"
	"github.com/blazskufca/dnsfilter/internal/upstream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildQuery mirrors message_test.go's helper locally to keep the package
// self-contained.
func buildQuery(t *testing.T, id uint16, name string, qtype question.Type) []byte {
	t.Helper()
	q := question.Question{Name: name, Type: qtype, Class: question.IN}
	qBytes, err := q.Encode()
	if err != nil {
		t.Fatalf("Encode question: %v", err)
	}
	var h header.Header
	h.ID = id
	h.QDCOUNT = 1
	hBytes := make([]byte, header.Size)
	if err := h.Encode(hBytes); err != nil {
		t.Fatalf("Encode header: %v", err)
	}
	return append(hBytes, qBytes...)
}

func sendAndRecv(t *testing.T, clientConn *net.UDPConn, query []byte) []byte {
	t.Helper()

	selfAddr, err := net.ResolveUDPAddr("udp4", clientConn.LocalAddr().String())
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}

	sender, err := net.DialUDP("udp4", nil, selfAddr)
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer sender.Close()

	if _, err := sender.Write(query); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := sender.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	buf := make([]byte, 512)
	n, err := sender.Read(buf)
	if err != nil {
		t.Fatalf("Read reply: %v", err)
	}
	return buf[:n]
}

func TestHandleDropsUndersizedDatagram(t *testing.T) {
	trie := blocklist.New()
	logger := discardLogger()
	p := New(nil, "", upstream.New(logger), trie, logger)
	p.handle([]byte{1, 2, 3}, &net.UDPAddr{})
	if p.Stats().Total != 0 {
		t.Errorf("undersized datagram should not count toward total")
	}
}

func TestHandleBlockedDomainSynthesisesNXDOMAIN(t *testing.T) {
	trie := blocklist.New()
	if err := trie.Insert("ads.test"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer clientConn.Close()

	logger := discardLogger()
	p := New(clientConn, "127.0.0.1", upstream.New(logger), trie, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = p.Run(ctx)
	}()
	defer cancel()

	query := buildQuery(t, 0x4242, "ads.test", question.A)
	reply := sendAndRecv(t, clientConn, query)

	if binary.BigEndian.Uint16(reply[0:2]) != 0x4242 {
		t.Errorf("id not echoed")
	}
	if reply[3]&0x0F != byte(header.NameError) {
		t.Errorf("rcode = %d, want NXDOMAIN", reply[3]&0x0F)
	}
	if !bytes.Equal(reply[12:], query[12:]) {
		t.Errorf("question section not echoed")
	}

	stats := p.Stats()
	if stats.Blocked != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v, want Blocked=1 Total=1", stats)
	}
}

func TestHandleNonADomainReturnsNotImplemented(t *testing.T) {
	trie := blocklist.New()
	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer clientConn.Close()

	logger := discardLogger()
	p := New(clientConn, "127.0.0.1", upstream.New(logger), trie, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	defer cancel()

	query := buildQuery(t, 1, "example.com", question.MX)
	reply := sendAndRecv(t, clientConn, query)
	if reply[3]&0x0F != byte(header.NotImplemented) {
		t.Errorf("rcode = %d, want NOTIMPL", reply[3]&0x0F)
	}
}

// TestHandleForwardsAllowedDomainVerbatim stands up a fake upstream on the
// well-known DNS port (Client.Exchange always dials port 53) and checks
// that a not-blocked A query's reply reaches the client as the exact bytes
// the fake upstream sent, untouched by the pipeline.
func TestHandleForwardsAllowedDomainVerbatim(t *testing.T) {
	upstreamConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53})
	if err != nil {
		t.Skipf("cannot bind fake upstream on port 53 (needs root): %v", err)
	}
	defer upstreamConn.Close()

	canned := make([]byte, 45)
	for i := range canned {
		canned[i] = byte(i + 1)
	}

	go func() {
		buf := make([]byte, 512)
		for {
			_, addr, err := upstreamConn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			reply := make([]byte, len(canned))
			copy(reply, canned)
			reply[0], reply[1] = buf[0], buf[1] // echo the query id
			reply[2] |= 0x80                    // set QR so validateReply accepts it
			if _, err := upstreamConn.WriteToUDP(reply, addr); err != nil {
				return
			}
		}
	}()

	trie := blocklist.New()
	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer clientConn.Close()

	logger := discardLogger()
	p := New(clientConn, "127.0.0.1", upstream.New(logger), trie, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	defer cancel()

	query := buildQuery(t, 0x1234, "example.com", question.A)
	reply := sendAndRecv(t, clientConn, query)

	want := make([]byte, len(canned))
	copy(want, canned)
	want[0], want[1] = query[0], query[1]
	want[2] |= 0x80

	if !bytes.Equal(reply, want) {
		t.Errorf("reply = %v, want verbatim fake-upstream bytes %v", reply, want)
	}

	stats := p.Stats()
	if stats.Forwarded != 1 {
		t.Errorf("Forwarded = %d, want 1", stats.Forwarded)
	}
}

func TestHandleEmptyQuestionReturnsFormErr(t *testing.T) {
	trie := blocklist.New()
	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer clientConn.Close()

	logger := discardLogger()
	p := New(clientConn, "127.0.0.1", upstream.New(logger), trie, logger)

	var h header.Header
	h.ID = 99
	hBytes := make([]byte, header.Size)
	if err := h.Encode(hBytes); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	p.handle(hBytes, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1})

	stats := p.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}
