// Package header implements the 12-byte DNS message header described in
// RFC 1035 section 4.1.1: a 16-bit transaction id, packed flag bits, and
// four 16-bit section counts, all in network byte order.
package header

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
)

// Size is the fixed wire length of a DNS header.
const Size = 12

// Header is the 12-byte section every DNS message starts with. Opcode and
// the reserved Z bits are preserved verbatim on decode; this package does
// not validate them, it only reads and writes the bits RFC 1035 assigns.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCOUNT uint16
	ANCOUNT uint16
	NSCOUNT uint16
	ARCOUNT uint16
}

// Flag bit layout within the 16-bit Flags field.
const (
	qrMask     = 0b1000_0000_0000_0000
	opcodeMask = 0b0111_1000_0000_0000
	aaMask     = 0b0000_0100_0000_0000
	tcMask     = 0b0000_0010_0000_0000
	rdMask     = 0b0000_0001_0000_0000
	raMask     = 0b0000_0000_1000_0000
	zMask      = 0b0000_0000_0111_0000
	rcodeMask  = 0b0000_0000_0000_1111
)

// Opcode is the 4-bit operation code (RFC 1035 section 4.1.1).
type Opcode uint16

const (
	Query  Opcode = iota // Standard query
	IQuery               // Inverse query
	Status               // Server status request
	// 3-15 reserved for future use.
)

// ResponseCode is the 4-bit RCODE (RFC 1035 section 4.1.1). The forwarder's
// synthesis path only ever emits FormatError, ServerFailure, NameError, and
// NotImplemented (Refused is accepted for completeness, since the five-way
// RCODE set is part of the synthesis contract even though the pipeline
// currently never selects it).
type ResponseCode uint16

const (
	NoError        ResponseCode = iota // No error condition
	FormatError                        // Format error
	ServerFailure                      // Server failure
	NameError                          // Name error (domain does not exist)
	NotImplemented                     // Not implemented
	Refused                            // Operation refused
	// 6-15 reserved for future use.
)

func (code ResponseCode) String() string {
	switch code {
	case NoError:
		return "NoError"
	case FormatError:
		return "FormatError"
	case ServerFailure:
		return "ServerFailure"
	case NameError:
		return "NameError"
	case NotImplemented:
		return "NotImplemented"
	case Refused:
		return "Refused"
	default:
		return "ReservedForFutureUse"
	}
}

// IsSynthesisable reports whether code is one of the five RCODEs the
// negative-response synthesiser (message.Message.EncodeNegative) is allowed
// to emit.
func (code ResponseCode) IsSynthesisable() bool {
	switch code {
	case FormatError, ServerFailure, NameError, NotImplemented, Refused:
		return true
	default:
		return false
	}
}

// SetRandomID assigns a cryptographically random transaction id, as RFC
// 1035 requires ids to be unique and unpredictable.
func (h *Header) SetRandomID() error {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Errorf("%w: generating random header id: %v", dnserr.ErrSystem, err)
	}
	h.ID = binary.BigEndian.Uint16(b[:])
	return nil
}

// IsQuery reports whether the QR bit is clear.
func (h *Header) IsQuery() bool { return h.Flags&qrMask == 0 }

// IsResponse reports whether the QR bit is set.
func (h *Header) IsResponse() bool { return h.Flags&qrMask != 0 }

// SetQR sets or clears the QR bit.
func (h *Header) SetQR(isResponse bool) {
	if isResponse {
		h.Flags |= qrMask
	} else {
		h.Flags &^= qrMask
	}
}

// GetOpcode extracts the 4-bit Opcode.
func (h *Header) GetOpcode() Opcode {
	return Opcode((h.Flags & opcodeMask) >> 11)
}

// SetOpcode sets the 4-bit Opcode.
func (h *Header) SetOpcode(op Opcode) {
	h.Flags = (h.Flags &^ opcodeMask) | ((uint16(op) << 11) & opcodeMask)
}

// IsAA reports whether the Authoritative Answer bit is set.
func (h *Header) IsAA() bool { return h.Flags&aaMask != 0 }

// SetAA sets or clears the Authoritative Answer bit.
func (h *Header) SetAA(aa bool) {
	if aa {
		h.Flags |= aaMask
	} else {
		h.Flags &^= aaMask
	}
}

// IsTC reports whether the Truncation bit is set.
func (h *Header) IsTC() bool { return h.Flags&tcMask != 0 }

// SetTC sets or clears the Truncation bit.
func (h *Header) SetTC(tc bool) {
	if tc {
		h.Flags |= tcMask
	} else {
		h.Flags &^= tcMask
	}
}

// IsRD reports whether the Recursion Desired bit is set.
func (h *Header) IsRD() bool { return h.Flags&rdMask != 0 }

// SetRD sets or clears the Recursion Desired bit.
func (h *Header) SetRD(rd bool) {
	if rd {
		h.Flags |= rdMask
	} else {
		h.Flags &^= rdMask
	}
}

// IsRA reports whether the Recursion Available bit is set.
func (h *Header) IsRA() bool { return h.Flags&raMask != 0 }

// SetRA sets or clears the Recursion Available bit.
func (h *Header) SetRA(ra bool) {
	if ra {
		h.Flags |= raMask
	} else {
		h.Flags &^= raMask
	}
}

// GetZ returns the reserved 3-bit Z field.
func (h *Header) GetZ() uint16 { return (h.Flags & zMask) >> 4 }

// SetZ sets the reserved 3-bit Z field.
func (h *Header) SetZ(z uint16) {
	h.Flags = (h.Flags &^ zMask) | ((z << 4) & zMask)
}

// GetRCODE returns the 4-bit response code.
func (h *Header) GetRCODE() ResponseCode { return ResponseCode(h.Flags & rcodeMask) }

// SetRCODE sets the 4-bit response code.
func (h *Header) SetRCODE(code ResponseCode) {
	h.Flags = (h.Flags &^ rcodeMask) | (uint16(code) & rcodeMask)
}

// Encode writes the 12-byte wire form of h into dst, which must have
// length at least Size.
func (h *Header) Encode(dst []byte) error {
	if len(dst) < Size {
		return fmt.Errorf("%w: header encode needs a %d-byte buffer, got %d", dnserr.ErrSystem, Size, len(dst))
	}
	binary.BigEndian.PutUint16(dst[0:2], h.ID)
	binary.BigEndian.PutUint16(dst[2:4], h.Flags)
	binary.BigEndian.PutUint16(dst[4:6], h.QDCOUNT)
	binary.BigEndian.PutUint16(dst[6:8], h.ANCOUNT)
	binary.BigEndian.PutUint16(dst[8:10], h.NSCOUNT)
	binary.BigEndian.PutUint16(dst[10:12], h.ARCOUNT)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler by allocating a fresh
// 12-byte buffer and calling Encode.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	if err := h.Encode(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode parses the first 12 bytes of data into a Header. No semantic
// validation is performed: opcode and reserved bits are preserved as-is.
func Decode(data []byte) (Header, error) {
	if len(data) < Size {
		return Header{}, fmt.Errorf("%w: header requires %d bytes, got %d", dnserr.ErrFormat, Size, len(data))
	}
	return Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags:   binary.BigEndian.Uint16(data[2:4]),
		QDCOUNT: binary.BigEndian.Uint16(data[4:6]),
		ANCOUNT: binary.BigEndian.Uint16(data[6:8]),
		NSCOUNT: binary.BigEndian.Uint16(data[8:10]),
		ARCOUNT: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}
