package mobi

import (
	"errors"
	"testing"

	"github.com/htol/mobicore/varint"
)

func TestStripTrailersNoFlags(t *testing.T) {
	rec := []byte("plain text record")
	out, err := stripTrailers(rec, 0)
	if err != nil {
		t.Fatalf("stripTrailers: %v", err)
	}
	if string(out) != string(rec) {
		t.Errorf("got %q, want unchanged record", out)
	}
}

func TestStripTrailersOneSection(t *testing.T) {
	text := []byte("the actual text")
	// A 3-byte trailer: two payload bytes plus a single-byte backward
	// varint (0x83 decodes to 3) whose value is the TOTAL trailer
	// length, varint bytes included.
	trailer := []byte{0xBB, 0xCC, 0x83}
	rec := append(append([]byte{}, text...), trailer...)

	out, err := stripTrailers(rec, 1<<1) // bit 1 set
	if err != nil {
		t.Fatalf("stripTrailers: %v", err)
	}
	if string(out) != string(text) {
		t.Errorf("got %q, want %q", out, text)
	}
}

func TestVarintEncodeBackwardRoundTrips(t *testing.T) {
	enc := varint.EncodeBackward(3)
	v, n, err := varint.DecodeBackward(enc)
	if err != nil {
		t.Fatalf("DecodeBackward: %v", err)
	}
	if v != 3 || n != len(enc) {
		t.Errorf("got (%d, %d), want (3, %d)", v, n, len(enc))
	}
}

func TestStripTrailersMultibyte(t *testing.T) {
	text := []byte("text")
	// Multibyte trailer: last byte's low 2 bits + 1 gives the length.
	// 0x01 -> (1&0x03)+1 = 2 trailing bytes.
	rec := append(append([]byte{}, text...), 0xAA, 0x01)

	out, err := stripTrailers(rec, 1) // bit 0 set
	if err != nil {
		t.Fatalf("stripTrailers: %v", err)
	}
	if string(out) != string(text) {
		t.Errorf("got %q, want %q", out, text)
	}
}

func TestStripTrailersOverflowIsCorrupt(t *testing.T) {
	rec := []byte{0x81} // a single byte whose varint decodes to a length >= record size
	if _, err := stripTrailers(rec, 1<<1); !errors.Is(err, ErrDataCorrupt) {
		t.Fatalf("got %v, want ErrDataCorrupt", err)
	}
}
