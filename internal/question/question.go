// Package question implements the DNS question-section entry (RFC 1035
// section 4.1.2): a domain name followed by a 2-byte QTYPE and 2-byte
// QCLASS, plus the compressed name codec (DecodeName/EncodeName) the rest
// of the wire format is built on.
package question

import (
	"encoding/binary"
	"fmt"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
)

// Type is the QTYPE field. Only A is meaningful on the query path this
// forwarder serves; the rest of the RFC 1035 table is kept so decoded and
// logged queries report a recognisable name instead of a bare number.
type Type uint16

const (
	A     Type = 1
	NS    Type = 2
	CNAME Type = 5
	SOA   Type = 6
	PTR   Type = 12
	MX    Type = 15
	TXT   Type = 16
	AAAA  Type = 28
)

func (t Type) String() string {
	switch t {
	case A:
		return "A"
	case NS:
		return "NS"
	case CNAME:
		return "CNAME"
	case SOA:
		return "SOA"
	case PTR:
		return "PTR"
	case MX:
		return "MX"
	case TXT:
		return "TXT"
	case AAAA:
		return "AAAA"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}

// Class is the QCLASS field.
type Class uint16

const (
	IN Class = 1
	CS Class = 2
	CH Class = 3
	HS Class = 4
)

func (c Class) String() string {
	switch c {
	case IN:
		return "IN"
	case CS:
		return "CS"
	case CH:
		return "CH"
	case HS:
		return "HS"
	default:
		return fmt.Sprintf("CLASS%d", uint16(c))
	}
}

// Question is a single entry of the question section.
type Question struct {
	Name  string
	Type  Type
	Class Class
}

// sizeWithoutName is the byte length of the QTYPE+QCLASS pair.
const sizeWithoutName = 4

// Decode parses one question starting at offset within datagram (the full
// message, needed because the name may carry a compression pointer) and
// returns it along with the offset immediately following the question.
func Decode(datagram []byte, offset int) (Question, int, error) {
	name, pos, err := DecodeName(datagram, offset)
	if err != nil {
		return Question{}, 0, err
	}

	if pos+sizeWithoutName > len(datagram) {
		return Question{}, 0, fmt.Errorf("%w: question truncated before type/class", dnserr.ErrFormat)
	}

	q := Question{
		Name:  name,
		Type:  Type(binary.BigEndian.Uint16(datagram[pos : pos+2])),
		Class: Class(binary.BigEndian.Uint16(datagram[pos+2 : pos+4])),
	}
	return q, pos + sizeWithoutName, nil
}

// Encode serialises q into wire format without name compression.
func (q Question) Encode() ([]byte, error) {
	nameBytes, err := EncodeName(q.Name)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, len(nameBytes)+sizeWithoutName)
	copy(buf, nameBytes)
	binary.BigEndian.PutUint16(buf[len(nameBytes):], uint16(q.Type))
	binary.BigEndian.PutUint16(buf[len(nameBytes)+2:], uint16(q.Class))
	return buf, nil
}
