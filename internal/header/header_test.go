package header

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
)

func TestDecodeShortBufferFails(t *testing.T) {
	for n := 0; n < Size; n++ {
		buf := make([]byte, n)
		if _, err := Decode(buf); !errors.Is(err, dnserr.ErrFormat) {
			t.Errorf("Decode(%d bytes): want ErrFormat, got %v", n, err)
		}
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	src := []byte{
		0x12, 0x34, // ID
		0x81, 0x80, // Flags: QR=1 RD=1 RA=1
		0x00, 0x01, // QDCOUNT
		0x00, 0x02, // ANCOUNT
		0x00, 0x00, // NSCOUNT
		0x00, 0x00, // ARCOUNT
	}

	h, err := Decode(src)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	out := make([]byte, Size)
	if err := h.Encode(out); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !bytes.Equal(src, out) {
		t.Errorf("round trip mismatch: got % x, want % x", out, src)
	}
}

func TestFlagAccessors(t *testing.T) {
	var h Header

	h.SetQR(true)
	if !h.IsResponse() || h.IsQuery() {
		t.Errorf("SetQR(true) did not stick")
	}
	h.SetQR(false)
	if !h.IsQuery() || h.IsResponse() {
		t.Errorf("SetQR(false) did not stick")
	}

	h.SetOpcode(Status)
	if h.GetOpcode() != Status {
		t.Errorf("GetOpcode() = %v, want %v", h.GetOpcode(), Status)
	}

	for _, b := range []bool{true, false} {
		h.SetAA(b)
		if h.IsAA() != b {
			t.Errorf("AA flag roundtrip failed for %v", b)
		}
		h.SetTC(b)
		if h.IsTC() != b {
			t.Errorf("TC flag roundtrip failed for %v", b)
		}
		h.SetRD(b)
		if h.IsRD() != b {
			t.Errorf("RD flag roundtrip failed for %v", b)
		}
		h.SetRA(b)
		if h.IsRA() != b {
			t.Errorf("RA flag roundtrip failed for %v", b)
		}
	}

	h.SetZ(0b101)
	if h.GetZ() != 0b101 {
		t.Errorf("GetZ() = %b, want %b", h.GetZ(), 0b101)
	}

	for code := NoError; code <= Refused; code++ {
		h.SetRCODE(code)
		if h.GetRCODE() != code {
			t.Errorf("RCODE roundtrip failed for %v", code)
		}
	}
}

func TestSetRandomIDIsNonZeroAndVaries(t *testing.T) {
	var a, b Header
	if err := a.SetRandomID(); err != nil {
		t.Fatalf("SetRandomID: %v", err)
	}
	if err := b.SetRandomID(); err != nil {
		t.Fatalf("SetRandomID: %v", err)
	}
	if a.ID == 0 {
		t.Error("random ID is zero, which is highly improbable")
	}
	if a.ID == b.ID {
		t.Error("two consecutive random IDs are identical, which is highly improbable")
	}
}

func TestSynthesisableRCODEs(t *testing.T) {
	for _, code := range []ResponseCode{FormatError, ServerFailure, NameError, NotImplemented, Refused} {
		if !code.IsSynthesisable() {
			t.Errorf("%v should be synthesisable", code)
		}
	}
	if NoError.IsSynthesisable() {
		t.Error("NoError should not be synthesisable")
	}
}
