package strkey

import (
	"strings"
	"testing"
)

func TestChecksum(t *testing.T) {
	if c := Checksum(nil); c != 0 {
		t.Fatalf("checksum of empty input = %#04x, want 0", c)
	}

	// CRC16 with poly 0x1021 and a zero seed over the standard check string.
	if c := Checksum([]byte("123456789")); c != 0x31c3 {
		t.Fatalf("checksum = %#04x, want 0x31c3", c)
	}

	// Version byte for an account ID followed by an all-zero key. This is
	// the fixed vector produced by the reference network implementation.
	payload := make([]byte, 33)
	payload[0] = 0x30
	if c := Checksum(payload); c != 0xe558 {
		t.Fatalf("checksum = %#04x, want 0xe558", c)
	}

	for _, in := range []string{"a", "stellar", "\x00\x01"} {
		if Checksum([]byte(in)) == 0 {
			t.Fatalf("checksum of %q is zero", in)
		}
	}
}

func TestEncode(t *testing.T) {
	var zero [32]byte
	addr := Encode(zero)
	if len(addr) != EncodedLen {
		t.Fatalf("address length = %d, want %d", len(addr), EncodedLen)
	}
	if addr != "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF" {
		t.Fatalf("unexpected address %s", addr)
	}

	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	addr = Encode(key)
	if addr != "GAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB7JZX" {
		t.Fatalf("unexpected address %s", addr)
	}
	if !strings.HasPrefix(addr, "G") {
		t.Fatalf("address %s does not start with G", addr)
	}
}
