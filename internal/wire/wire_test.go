package wire

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte("merged-result-bytes")
	b := Encode(0x01, payload)

	flags, got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if flags != 0x01 {
		t.Fatalf("flags = %#x, want 0x01", flags)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
}

func TestRoundTripEmptyPayload(t *testing.T) {
	b := Encode(0, nil)
	flags, got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if flags != 0 || len(got) != 0 {
		t.Fatalf("flags=%#x len=%d, want 0/0", flags, len(got))
	}
}

// Decode must reject trailing bytes (strict framing).
func TestDecodeRejectsTrailing(t *testing.T) {
	b := Encode(0, []byte("x"))
	b = append(b, 0xDE, 0xAD)
	if _, _, err := Decode(b); err == nil {
		t.Fatalf("Decode should reject trailing bytes")
	}
}

func TestDecodeRejectsCorrupt(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("short"),
		[]byte("not-the-wire-format-at-all"),
	}
	for _, c := range cases {
		if _, _, err := Decode(c); err == nil {
			t.Fatalf("Decode should reject %q", c)
		}
	}

	// valid frame, wrong version byte
	b := Encode(0, []byte("x"))
	b[4] = 99
	if _, _, err := Decode(b); err == nil {
		t.Fatalf("Decode should reject unknown version")
	}
}
