package mobi

import (
	"fmt"

	"github.com/htol/mobicore/varint"
)

// buffer is a cursor over a byte slice with bounds-checked big-endian
// reads. It never panics on malformed input: every read past the end
// of the slice returns ErrBufferEnd, wrapped with enough context to
// tell which field was being read.
//
// Unlike a binary.Read-based struct decode, MOBI headers are
// self-describing (every field's presence depends on a declared
// length read earlier), so fields are read one at a time through this
// cursor rather than unmarshaled as a whole struct.
type buffer struct {
	data []byte
	pos  int
}

func newBuffer(data []byte) *buffer {
	return &buffer{data: data}
}

// offset returns the current read position.
func (b *buffer) offset() int { return b.pos }

// len returns the total length of the underlying slice.
func (b *buffer) len() int { return len(b.data) }

// remaining returns the number of unread bytes.
func (b *buffer) remaining() int { return len(b.data) - b.pos }

func (b *buffer) need(n int) error {
	if n < 0 || b.pos+n > len(b.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrBufferEnd, n, b.pos, len(b.data)-b.pos)
	}
	return nil
}

// u8 reads one byte.
func (b *buffer) u8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// u16be reads a big-endian uint16.
func (b *buffer) u16be() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := uint16(b.data[b.pos])<<8 | uint16(b.data[b.pos+1])
	b.pos += 2
	return v, nil
}

// u32be reads a big-endian uint32.
func (b *buffer) u32be() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := uint32(b.data[b.pos])<<24 | uint32(b.data[b.pos+1])<<16 |
		uint32(b.data[b.pos+2])<<8 | uint32(b.data[b.pos+3])
	b.pos += 4
	return v, nil
}

// seek repositions the cursor to an absolute offset within the buffer.
func (b *buffer) seek(n int) error {
	if n < 0 || n > len(b.data) {
		return fmt.Errorf("%w: seek to %d, length %d", ErrBufferEnd, n, len(b.data))
	}
	b.pos = n
	return nil
}

// skip advances the cursor by n bytes.
func (b *buffer) skip(n int) error {
	return b.seek(b.pos + n)
}

// take returns a sub-buffer over the next n bytes and advances past them.
func (b *buffer) take(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	s := b.data[b.pos : b.pos+n]
	b.pos += n
	return s, nil
}

// peekTake returns the next n bytes without advancing the cursor.
func (b *buffer) peekTake(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	return b.data[b.pos : b.pos+n], nil
}

// copyString reads n bytes and trims a single trailing NUL terminator,
// if present, without otherwise treating the bytes as text.
func (b *buffer) copyString(n int) ([]byte, error) {
	s, err := b.take(n)
	if err != nil {
		return nil, err
	}
	if len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

// getVarlenFwd reads a forward-direction MOBI variable-width integer
// starting at the cursor: each byte contributes its low 7 bits, and
// the byte carrying the high bit set terminates the sequence (the
// format used for INDX/TAGX "trailing length" fields). It returns the
// decoded value and the number of bytes consumed, and advances the
// cursor past them.
func (b *buffer) getVarlenFwd() (uint32, int, error) {
	start := b.pos
	for {
		if b.pos >= len(b.data) {
			b.pos = start
			return 0, 0, fmt.Errorf("%w: unterminated forward varint at offset %d", ErrBufferEnd, start)
		}
		if b.data[b.pos]&0x80 != 0 {
			break
		}
		b.pos++
	}
	b.pos++ // include the terminator byte
	n := b.pos - start
	v, _, err := varint.DecodeForward(b.data[start:b.pos])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDataCorrupt, err)
	}
	return v, n, nil
}

// getVarlenBwd reads a backward-direction MOBI variable-width integer
// whose encoding ends at byte offset `end` (exclusive) of the
// underlying slice, walking right-to-left. It does not move the
// cursor; callers use it against the tail of a record, not the main
// read position. It returns the decoded value and the number of bytes
// consumed.
func (b *buffer) getVarlenBwd(end int) (uint32, int, error) {
	if end < 0 || end > len(b.data) {
		return 0, 0, fmt.Errorf("%w: backward varint end %d out of range", ErrBufferEnd, end)
	}
	i := end
	for {
		i--
		if i < 0 {
			return 0, 0, fmt.Errorf("%w: unterminated backward varint ending at %d", ErrBufferEnd, end)
		}
		if b.data[i]&0x80 != 0 {
			break
		}
	}
	v, n, err := varint.DecodeBackward(b.data[i:end])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDataCorrupt, err)
	}
	return v, n, nil
}
