package mobi

import (
	"bytes"
	"compress/flate"
	"testing"
)

func TestClassifyResource(t *testing.T) {
	cases := []struct {
		data []byte
		want ResourceType
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0x00}, ResourceJPEG},
		{[]byte("GIF89a"), ResourceGIF},
		{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, ResourcePNG},
		{[]byte("FONTxxxxxxxxxxxxxxxxxxxx"), ResourceFont},
		{[]byte("AUDIxxxx"), ResourceAudio},
		{[]byte("VIDExxxx"), ResourceVideo},
		{[]byte("BOUNDARY"), ResourceBoundary},
		{[]byte("random bytes"), ResourceUnknown},
	}
	for _, c := range cases {
		if got := ClassifyResource(c.data); got != c.want {
			t.Errorf("ClassifyResource(%q) = %v, want %v", c.data, got, c.want)
		}
	}
}

func TestDecodeMediaWrapper(t *testing.T) {
	rec := append([]byte("AUDI"), 0x00, 0x00, 0x00, 0x08, 'm', 'p', '3', 'd', 'a', 't', 'a')
	m, err := DecodeMedia(rec)
	if err != nil {
		t.Fatalf("DecodeMedia: %v", err)
	}
	if m.Magic != "AUDI" {
		t.Errorf("magic = %q", m.Magic)
	}
	if string(m.Body) != "mp3data" {
		t.Errorf("body = %q", m.Body)
	}
}

func TestDecodeFontXOROnly(t *testing.T) {
	plain := []byte("this is plaintext font data, unobfuscated")
	key := []byte{0x5A, 0x11}
	obfuscated := make([]byte, len(plain))
	for i := range plain {
		obfuscated[i] = plain[i] ^ key[i%len(key)]
	}

	rec := buildFontRecord(uint32(len(obfuscated)), fontFlagXOR, obfuscated, key)
	f, err := DecodeFont(rec)
	if err != nil {
		t.Fatalf("DecodeFont: %v", err)
	}
	if string(f.Data) != string(plain) {
		t.Errorf("got %q, want %q", f.Data, plain)
	}
}

func TestDecodeFontZlibAndFormat(t *testing.T) {
	plain := []byte("OTTO-format-font-body-padding-padding-padding")

	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(plain); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	rec := buildFontRecord(uint32(len(plain)), fontFlagZlib, compressed.Bytes(), nil)
	f, err := DecodeFont(rec)
	if err != nil {
		t.Fatalf("DecodeFont: %v", err)
	}
	if string(f.Data) != string(plain) {
		t.Errorf("got %q, want %q", f.Data, plain)
	}
	if f.Format != "OTF" {
		t.Errorf("format = %q, want OTF", f.Format)
	}
}

// buildFontRecord assembles a FONT record: the 24-byte header, an
// optional XOR key right after it, then the payload, which runs to the
// end of the record.
func buildFontRecord(decodedSize uint32, flags uint32, payload []byte, xorKey []byte) []byte {
	header := make([]byte, fontHeaderSize)
	copy(header[0:4], "FONT")
	putU32 := func(off int, v uint32) {
		header[off] = byte(v >> 24)
		header[off+1] = byte(v >> 16)
		header[off+2] = byte(v >> 8)
		header[off+3] = byte(v)
	}
	putU32(4, decodedSize)
	putU32(8, flags)
	putU32(12, fontHeaderSize+uint32(len(xorKey))) // data offset
	putU32(16, uint32(len(xorKey)))
	putU32(20, fontHeaderSize) // XOR key offset

	rec := append(header, xorKey...)
	rec = append(rec, payload...)
	return rec
}
