package session

import (
	"bytes"
	"testing"
)

func TestFrameTapeKeepsNewestWindow(t *testing.T) {
	tape := NewFrameTape(8)

	if _, err := tape.Write([]byte("abcd")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := tape.Bytes(); !bytes.Equal(got, []byte("abcd")) {
		t.Errorf("tape = %q", got)
	}

	tape.Write([]byte("efgh"))
	tape.Write([]byte("ij"))
	if got := tape.Bytes(); !bytes.Equal(got, []byte("cdefghij")) {
		t.Errorf("after wrap tape = %q", got)
	}
	if tape.Len() != 8 {
		t.Errorf("len = %d, want 8", tape.Len())
	}
	if tape.Total() != 10 {
		t.Errorf("total = %d, want 10", tape.Total())
	}
}

func TestFrameTapeOversizeWrite(t *testing.T) {
	tape := NewFrameTape(4)
	tape.Write([]byte("0123456789"))
	if got := tape.Bytes(); !bytes.Equal(got, []byte("6789")) {
		t.Errorf("tape = %q, want newest 4 bytes", got)
	}
}

func TestFrameTapeReset(t *testing.T) {
	tape := NewFrameTape(4)
	tape.Write([]byte("abcd"))
	tape.Reset()
	if tape.Len() != 0 {
		t.Errorf("len after reset = %d", tape.Len())
	}
	if tape.Total() != 4 {
		t.Errorf("total after reset = %d, want 4", tape.Total())
	}
	tape.Write([]byte("xy"))
	if got := tape.Bytes(); !bytes.Equal(got, []byte("xy")) {
		t.Errorf("tape = %q", got)
	}
}
