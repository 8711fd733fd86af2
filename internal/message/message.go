// Package message ties the header and question codecs together into the
// parsed representation the query pipeline works with, and implements the
// negative-response synthesiser described in RFC 1035 section 4.1.1: a
// reply whose question section is a byte-exact echo of the query's.
package message

import (
	"fmt"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
	"github.com/blazskufca/dnsfilter/internal/header"
	"github.com/blazskufca/dnsfilter/internal/question"
)

// Message is a decoded query: its header, its questions, and a retained
// copy of the original datagram. The raw bytes are the only authoritative
// source for the question section when synthesising a reply - the decoded
// Questions are used for filter lookup and logging only.
type Message struct {
	Header    header.Header
	Questions []question.Question
	Raw       []byte
}

// Decode parses a datagram's header and declared questions. It fails with
// dnserr.ErrFormat if the header itself is too short to read - in that
// case there is no question section to recover and the returned Message
// is nil. If the header decodes but a question fails to parse, Decode
// still returns the partially built Message (header and raw bytes intact)
// alongside the error, so a caller can fall back to EncodeNegative, which
// reconstructs the question section by walking the raw bytes rather than
// relying on the decoded Questions slice.
func Decode(datagram []byte) (*Message, error) {
	h, err := header.Decode(datagram)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Header: h,
		Raw:    datagram,
	}

	offset := header.Size
	questions := make([]question.Question, 0, h.QDCOUNT)
	for i := 0; i < int(h.QDCOUNT); i++ {
		q, next, err := question.Decode(datagram, offset)
		if err != nil {
			return msg, fmt.Errorf("decoding question %d: %w", i, err)
		}
		questions = append(questions, q)
		offset = next
	}
	msg.Questions = questions

	return msg, nil
}

// questionSectionLength walks a single uncompressed question immediately
// following the header in raw and returns its length in bytes (name plus
// QTYPE/QCLASS). Per RFC 1035 section 4.1.1, the question a client sends
// must be echoed back bit-identically, so this walks the name by its wire
// encoding rather than re-encoding the decoded string - that would lose
// byte-exactness for case and any escaped content. A compression pointer
// in the question section of a query is itself a protocol violation: real
// clients never compress their own first question, so encountering one
// here is treated as malformed input rather than followed.
func questionSectionLength(raw []byte) (int, error) {
	pos := header.Size
	for {
		if pos >= len(raw) {
			return 0, fmt.Errorf("%w: question section runs past end of datagram", dnserr.ErrFormat)
		}
		b := raw[pos]
		if b&0xC0 != 0 {
			return 0, fmt.Errorf("%w: compression pointer in query question section", dnserr.ErrFormat)
		}
		length := int(b)
		pos++
		if length == 0 {
			break
		}
		if length > question.MaxLabelLength {
			return 0, fmt.Errorf("%w: label length %d exceeds %d", dnserr.ErrFormat, length, question.MaxLabelLength)
		}
		pos += length
		if pos > len(raw) {
			return 0, fmt.Errorf("%w: label extends past end of datagram", dnserr.ErrFormat)
		}
	}
	pos += 4 // QTYPE + QCLASS
	if pos > len(raw) {
		return 0, fmt.Errorf("%w: question section truncated before type/class", dnserr.ErrFormat)
	}
	return pos - header.Size, nil
}

// EncodeNegative synthesises a negative response to the query m carries,
// with the given RCODE. The first question of m.Raw is copied verbatim into
// the result; any further questions are not copied, although QDCOUNT is.
// The header is freshly built per the contract:
// id copied, QR=1, opcode=0, AA=0, TC=0, RD copied from the query, RA=0,
// Z=0, RCODE as given, QDCOUNT copied, ANCOUNT=NSCOUNT=ARCOUNT=0.
func (m *Message) EncodeNegative(rcode header.ResponseCode) ([]byte, error) {
	if !rcode.IsSynthesisable() {
		return nil, fmt.Errorf("%w: rcode %v is not a valid negative-response code", dnserr.ErrFormat, rcode)
	}

	var qlen int
	if m.Header.QDCOUNT > 0 {
		var err error
		qlen, err = questionSectionLength(m.Raw)
		if err != nil {
			return nil, err
		}
	}

	var h header.Header
	h.ID = m.Header.ID
	h.SetQR(true)
	h.SetOpcode(header.Query)
	h.SetAA(false)
	h.SetTC(false)
	h.SetRD(m.Header.IsRD())
	h.SetRA(false)
	h.SetZ(0)
	h.SetRCODE(rcode)
	h.QDCOUNT = m.Header.QDCOUNT
	h.ANCOUNT, h.NSCOUNT, h.ARCOUNT = 0, 0, 0

	out := make([]byte, header.Size+qlen)
	if err := h.Encode(out[:header.Size]); err != nil {
		return nil, err
	}
	copy(out[header.Size:], m.Raw[header.Size:header.Size+qlen])

	return out, nil
}
