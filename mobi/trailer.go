package mobi

import "fmt"

// stripTrailers removes trailing auxiliary data from a text record
// according to extra_flags, returning the text payload that remains
// once every trailer has been trimmed from the end.
//
// extra_flags is a 16-bit mask: bits 1..15 each indicate one variable
// length trailing section, read high bit to low; bit 0 indicates a
// fixed-format "multibyte" trailer read last, after every numbered
// section has been removed.
func stripTrailers(rec []byte, extraFlags uint32) ([]byte, error) {
	end := len(rec)

	for bit := 15; bit >= 1; bit-- {
		if extraFlags&(1<<uint(bit)) == 0 {
			continue
		}
		b := newBuffer(rec)
		length, _, err := b.getVarlenBwd(end)
		if err != nil {
			return nil, fmt.Errorf("trailer bit %d: %w", bit, err)
		}
		if int(length) >= end {
			return nil, fmt.Errorf("%w: trailer bit %d length %d meets or exceeds record size %d", ErrDataCorrupt, bit, length, end)
		}
		end -= int(length)
	}

	if extraFlags&1 != 0 {
		if end < 1 {
			return nil, fmt.Errorf("%w: multibyte trailer has no byte to read", ErrDataCorrupt)
		}
		lastByte := rec[end-1]
		length := int(lastByte&0x03) + 1
		if length >= end {
			return nil, fmt.Errorf("%w: multibyte trailer length %d meets or exceeds record size %d", ErrDataCorrupt, length, end)
		}
		end -= length
	}

	return rec[:end], nil
}
