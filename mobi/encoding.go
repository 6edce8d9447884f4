package mobi

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Text encoding identifiers as they appear in Record0Prefix.TextEncoding.
const (
	TextEncodingCP1252 = 1252
	TextEncodingUTF8   = 65001
)

// cp1252Unassigned holds the five byte values Windows-1252 leaves
// unassigned. golang.org/x/text/encoding/charmap maps
// these to U+FFFD rather than rejecting them, so they're checked
// explicitly before handing the rest of the payload to the decoder.
var cp1252Unassigned = map[byte]bool{
	0x81: true,
	0x8D: true,
	0x8F: true,
	0x90: true,
	0x9D: true,
}

// decodeMetadataString converts a raw metadata byte string (an EXTH
// string payload or a PDB/header text field) to UTF-8 according to
// textEncoding. UTF-8-encoded input passes
// through unchanged once its trailing NUL, if any, is trimmed.
func decodeMetadataString(raw []byte, textEncoding uint32) (string, error) {
	if len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}

	switch textEncoding {
	case TextEncodingUTF8, 0:
		return string(raw), nil
	case TextEncodingCP1252:
		return decodeCP1252(raw)
	default:
		return "", fmt.Errorf("%w: unknown text encoding %d", ErrFileUnsupported, textEncoding)
	}
}

// decodeCP1252 converts Windows-1252 bytes to UTF-8, reporting
// ErrDataCorrupt on any of the five codepoints CP1252 leaves
// unassigned instead of silently substituting U+FFFD.
func decodeCP1252(raw []byte) (string, error) {
	for i, c := range raw {
		if cp1252Unassigned[c] {
			return "", fmt.Errorf("%w: unassigned CP1252 byte 0x%02X at offset %d", ErrDataCorrupt, c, i)
		}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: CP1252 decode: %v", ErrDataCorrupt, err)
	}
	return string(out), nil
}
