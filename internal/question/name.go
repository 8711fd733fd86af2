package question

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
)

// DNS name limits per RFC 1035.
const (
	MaxLabelLength = 63
	MaxNameLength  = 255
)

// maxPointerHops bounds the number of compression pointers a single name
// may traverse, as defense against pathological (but technically
// backward-pointing) pointer chains.
const maxPointerHops = 10

const (
	lengthTypeMask  = 0xC0
	labelType       = 0x00
	pointerType     = 0xC0
	pointerOffset14 = 0x3FFF
)

// DecodeName decodes a (possibly compressed) domain name starting at
// offset within datagram, the full message the name's compression pointers
// are relative to. It returns the decoded dot-separated name (no trailing
// dot, case preserved) and the offset immediately following the *first*
// traversed encoded name - i.e. past the terminating zero byte, or past a
// two-byte pointer if one was taken, whichever came first. Once the first
// pointer has fixed the cursor, following further pointers does not move it.
func DecodeName(datagram []byte, offset int) (string, int, error) {
	var labels []string
	pos := offset
	hops := 0
	cursor := -1

	for {
		if pos >= len(datagram) {
			return "", 0, fmt.Errorf("%w: name decode ran past end of message", dnserr.ErrFormat)
		}

		b := datagram[pos]
		switch b & lengthTypeMask {
		case labelType:
			length := int(b)
			pos++
			if length == 0 {
				name := strings.Join(labels, ".")
				if len(name) > MaxNameLength {
					return "", 0, fmt.Errorf("%w: domain name exceeds %d octets", dnserr.ErrFormat, MaxNameLength)
				}
				if cursor < 0 {
					cursor = pos
				}
				return name, cursor, nil
			}
			if length > MaxLabelLength {
				return "", 0, fmt.Errorf("%w: label length %d exceeds %d", dnserr.ErrFormat, length, MaxLabelLength)
			}
			if pos+length > len(datagram) {
				return "", 0, fmt.Errorf("%w: label extends past end of message", dnserr.ErrFormat)
			}
			labels = append(labels, string(datagram[pos:pos+length]))
			pos += length

		case pointerType:
			if pos+1 >= len(datagram) {
				return "", 0, fmt.Errorf("%w: truncated compression pointer", dnserr.ErrFormat)
			}
			target := int(binary.BigEndian.Uint16(datagram[pos:pos+2]) & pointerOffset14)
			if target >= pos {
				return "", 0, fmt.Errorf("%w: compression pointer does not point backward", dnserr.ErrFormat)
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, fmt.Errorf("%w: exceeded %d compression pointer hops", dnserr.ErrFormat, maxPointerHops)
			}
			if cursor < 0 {
				cursor = pos + 2
			}
			pos = target

		default:
			return "", 0, fmt.Errorf("%w: reserved label length bits 0x%02x", dnserr.ErrFormat, b&lengthTypeMask)
		}
	}
}

// EncodeName converts a dot-separated name into length-prefixed labels
// terminated by a zero byte, with no compression. An empty name encodes as
// a single zero byte (the root).
func EncodeName(name string) ([]byte, error) {
	if name == "" {
		return []byte{0}, nil
	}

	if len(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: domain name exceeds %d octets", dnserr.ErrFormat, MaxNameLength)
	}

	labels := strings.Split(name, ".")
	buf := make([]byte, 0, len(name)+2)

	for _, label := range labels {
		if len(label) == 0 {
			return nil, fmt.Errorf("%w: empty label in %q", dnserr.ErrFormat, name)
		}
		if len(label) > MaxLabelLength {
			return nil, fmt.Errorf("%w: label %q exceeds %d bytes", dnserr.ErrFormat, label, MaxLabelLength)
		}
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	buf = append(buf, 0)

	return buf, nil
}
