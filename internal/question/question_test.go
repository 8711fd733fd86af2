package question

import "testing"

func TestQuestionEncodeDecode(t *testing.T) {
	q := Question{Name: "ads.google.com", Type: A, Class: IN}

	encoded, err := q.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, n, err := Decode(encoded, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("cursor = %d, want %d", n, len(encoded))
	}
	if decoded != q {
		t.Errorf("got %+v, want %+v", decoded, q)
	}
}

func TestQuestionDecodeWithCompressedNameAndTrailingData(t *testing.T) {
	name, err := EncodeName("example.com")
	if err != nil {
		t.Fatalf("EncodeName: %v", err)
	}
	// A question at offset 0 followed by a second question that
	// compresses its name back to offset 0.
	first := append(append([]byte{}, name...), 0x00, byte(A), 0x00, byte(IN))
	pointer := []byte{0xC0, 0x00, 0x00, byte(AAAA), 0x00, byte(IN)}
	data := append(append([]byte{}, first...), pointer...)

	q2, _, err := Decode(data, len(first))
	if err != nil {
		t.Fatalf("Decode second question: %v", err)
	}
	if q2.Name != "example.com" {
		t.Errorf("compressed question name = %q, want example.com", q2.Name)
	}
	if q2.Type != AAAA {
		t.Errorf("type = %v, want AAAA", q2.Type)
	}
}

func TestTypeAndClassString(t *testing.T) {
	if A.String() != "A" || IN.String() != "IN" {
		t.Errorf("String() methods broken: %q %q", A, IN)
	}
	if Type(999).String() != "TYPE999" {
		t.Errorf("unknown type formatting: %q", Type(999))
	}
}
