package mobi

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// ResourceType classifies a non-text record payload by its leading
// magic bytes.
type ResourceType int

const (
	ResourceUnknown ResourceType = iota
	ResourceJPEG
	ResourceGIF
	ResourcePNG
	ResourceBMP
	ResourceFont
	ResourceAudio
	ResourceVideo
	ResourceBoundary
)

var eofMagic = []byte{0xe9, 0x8e, '\r', '\n'}

// ClassifyResource identifies a record's resource type from its
// leading bytes.
func ClassifyResource(data []byte) ResourceType {
	switch {
	case hasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ResourceJPEG
	case hasPrefix(data, []byte("GIF8")):
		return ResourceGIF
	case hasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return ResourcePNG
	case isBMP(data):
		return ResourceBMP
	case hasPrefix(data, []byte("FONT")):
		return ResourceFont
	case hasPrefix(data, []byte("AUDI")):
		return ResourceAudio
	case hasPrefix(data, []byte("VIDE")):
		return ResourceVideo
	case hasPrefix(data, []byte("BOUNDARY")), hasPrefix(data, eofMagic):
		return ResourceBoundary
	default:
		return ResourceUnknown
	}
}

func hasPrefix(data, magic []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

// isBMP checks the "BM" signature plus a little-endian file-size u32
// matching the record's own length.
func isBMP(data []byte) bool {
	if len(data) < 6 || data[0] != 'B' || data[1] != 'M' {
		return false
	}
	size := uint32(data[2]) | uint32(data[3])<<8 | uint32(data[4])<<16 | uint32(data[5])<<24
	return int(size) == len(data)
}

const (
	fontHeaderSize  = 24
	fontFlagZlib    = 1
	fontFlagXOR     = 2
	fontXORMaxBytes = 1040
)

// FontResource is a decoded FONT record.
type FontResource struct {
	DecodedSize uint32
	Format      string // "OTF", "TTF", or "unknown"
	Data        []byte
}

// DecodeFont parses and decodes a FONT resource record: the 24-byte
// header, optional XOR deobfuscation of the leading bytes, and
// optional DEFLATE inflation.
func DecodeFont(rec []byte) (*FontResource, error) {
	if len(rec) < fontHeaderSize {
		return nil, fmt.Errorf("%w: FONT record shorter than header", ErrDataCorrupt)
	}
	b := newBuffer(rec)
	magic, err := b.take(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != "FONT" {
		return nil, fmt.Errorf("%w: FONT magic %q", ErrDataCorrupt, magic)
	}
	decodedSize, err := b.u32be()
	if err != nil {
		return nil, err
	}
	flags, err := b.u32be()
	if err != nil {
		return nil, err
	}
	dataOffset, err := b.u32be()
	if err != nil {
		return nil, err
	}
	xorKeyLen, err := b.u32be()
	if err != nil {
		return nil, err
	}
	xorDataOffset, err := b.u32be()
	if err != nil {
		return nil, err
	}

	if int(dataOffset) > len(rec) {
		return nil, fmt.Errorf("%w: FONT data offset %d exceeds record", ErrDataCorrupt, dataOffset)
	}
	data := make([]byte, len(rec)-int(dataOffset))
	copy(data, rec[dataOffset:])

	if flags&fontFlagXOR != 0 {
		if xorKeyLen == 0 {
			return nil, fmt.Errorf("%w: FONT XOR flag set with zero-length key", ErrDataCorrupt)
		}
		keyEnd := int(xorDataOffset) + int(xorKeyLen)
		if keyEnd > len(rec) {
			return nil, fmt.Errorf("%w: FONT XOR key at %d exceeds record", ErrDataCorrupt, xorDataOffset)
		}
		key := rec[xorDataOffset:keyEnd]

		n := fontXORMaxBytes
		if n > len(data) {
			n = len(data)
		}
		for i := 0; i < n; i++ {
			data[i] ^= key[i%len(key)]
		}
	}

	if flags&fontFlagZlib != 0 {
		inflated, err := inflateFont(data)
		if err != nil {
			return nil, fmt.Errorf("%w: FONT inflate: %v", ErrDataCorrupt, err)
		}
		if uint32(len(inflated)) != decodedSize {
			return nil, fmt.Errorf("%w: FONT decoded size %d, header declares %d", ErrDataCorrupt, len(inflated), decodedSize)
		}
		data = inflated
	}

	return &FontResource{
		DecodedSize: decodedSize,
		Format:      classifyFontFormat(data),
		Data:        data,
	}, nil
}

// inflateFont decompresses a raw DEFLATE stream (no zlib wrapper).
func inflateFont(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func classifyFontFormat(data []byte) string {
	switch {
	case hasPrefix(data, []byte("OTTO")):
		return "OTF"
	case hasPrefix(data, []byte{0x00, 0x01, 0x00, 0x00}), hasPrefix(data, []byte("true")):
		return "TTF"
	default:
		return "unknown"
	}
}

// MediaResource is a decoded AUDI/VIDE record: a 4-byte magic, a
// 4-byte big-endian offset to the media body, and the raw stream.
type MediaResource struct {
	Magic string
	Body  []byte
}

// DecodeMedia parses an AUDI or VIDE wrapper record.
func DecodeMedia(rec []byte) (*MediaResource, error) {
	if len(rec) < 8 {
		return nil, fmt.Errorf("%w: media record shorter than header", ErrDataCorrupt)
	}
	magic := string(rec[:4])
	offset := be32(rec[4:8])
	if int(offset) > len(rec) {
		return nil, fmt.Errorf("%w: media body offset %d exceeds record", ErrDataCorrupt, offset)
	}
	return &MediaResource{Magic: magic, Body: rec[offset:]}, nil
}
