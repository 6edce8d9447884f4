package mobi

import "fmt"

const (
	huffMagic = "HUFF"
	cdicMagic = "CDIC"

	// maxDictDepth bounds recursive dictionary-entry resolution so a
	// malformed CDIC table can't drive unbounded expansion.
	maxDictDepth = 16
)

// huffTables holds the two fixed-size lookup tables parsed from one
// HUFF record.
type huffTables struct {
	table1   [256]uint32
	mincode  [33]uint32 // indexed 1..32; index 0 unused
	maxcode  [33]uint32
}

// parseHuffTables reads a HUFF record: magic, header length, and
// offsets to a 256-entry and a 64-entry (32 mincode + 32 maxcode)
// table of big-endian u32s.
func parseHuffTables(rec []byte) (*huffTables, error) {
	b := newBuffer(rec)
	magic, err := b.take(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != huffMagic {
		return nil, fmt.Errorf("%w: HUFF magic %q", ErrDataCorrupt, magic)
	}
	if _, err := b.u32be(); err != nil { // header length, unused beyond validation
		return nil, err
	}
	table1Off, err := b.u32be()
	if err != nil {
		return nil, err
	}
	table2Off, err := b.u32be()
	if err != nil {
		return nil, err
	}

	var t huffTables

	if int(table1Off)+256*4 > len(rec) {
		return nil, fmt.Errorf("%w: HUFF table1 at %d exceeds record", ErrDataCorrupt, table1Off)
	}
	for i := 0; i < 256; i++ {
		off := int(table1Off) + i*4
		t.table1[i] = be32(rec[off : off+4])
	}

	if int(table2Off)+64*4 > len(rec) {
		return nil, fmt.Errorf("%w: HUFF table2 at %d exceeds record", ErrDataCorrupt, table2Off)
	}
	for i := 0; i < 32; i++ {
		off := int(table2Off) + i*4
		t.mincode[i+1] = be32(rec[off : off+4])
		off = int(table2Off) + (32+i)*4
		t.maxcode[i+1] = be32(rec[off : off+4])
	}

	return &t, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// cdicDict is one CDIC dictionary record: the symbol-offset table
// (16-bit offsets into the record body, each pointing at a
// (length:u16, symbol:bytes) pair) plus the record's own body for
// later lookups.
type cdicDict struct {
	body    []byte
	offsets []uint16
}

// huffCDIC bundles the parsed HUFF tables with every CDIC dictionary
// record and the code_length shared across them.
type huffCDIC struct {
	tables     *huffTables
	dicts      []cdicDict
	codeLength uint32
	indexCount uint32
}

// parseHuffCDIC parses the HUFF record followed by one or more CDIC
// dictionary records, as pointed to by the MOBI header's Huffman
// fields.
func parseHuffCDIC(huffRec []byte, cdicRecs [][]byte) (*huffCDIC, error) {
	tables, err := parseHuffTables(huffRec)
	if err != nil {
		return nil, fmt.Errorf("HUFF record: %w", err)
	}

	hc := &huffCDIC{tables: tables}

	for i, rec := range cdicRecs {
		b := newBuffer(rec)
		magic, err := b.take(4)
		if err != nil {
			return nil, fmt.Errorf("CDIC record %d: %w", i, err)
		}
		if string(magic) != cdicMagic {
			return nil, fmt.Errorf("%w: CDIC record %d magic %q", ErrDataCorrupt, i, magic)
		}
		if _, err := b.u32be(); err != nil { // header length
			return nil, err
		}
		indexCount, err := b.u32be()
		if err != nil {
			return nil, err
		}
		codeLength, err := b.u32be()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			hc.indexCount = indexCount
			hc.codeLength = codeLength
		}

		entriesHere := 1 << codeLength
		if i == len(cdicRecs)-1 {
			// last record may hold fewer than a full 1<<code_length entries
		}
		offsets := make([]uint16, 0, entriesHere)
		for len(offsets) < entriesHere && b.remaining() >= 2 {
			o, err := b.u16be()
			if err != nil {
				break
			}
			offsets = append(offsets, o)
		}

		hc.dicts = append(hc.dicts, cdicDict{body: rec, offsets: offsets})
	}

	return hc, nil
}

// bitReader is a 64-bit shift-register reader over a byte slice,
// sourcing new bits from the high end.
type bitReader struct {
	data []byte
	pos  int    // next unread byte
	reg  uint64 // shift register, MSB-aligned
	bits int    // number of valid bits currently in reg
}

func newBitReader(data []byte) *bitReader {
	r := &bitReader{data: data}
	r.fill()
	return r
}

func (r *bitReader) fill() {
	for r.bits <= 56 && r.pos < len(r.data) {
		r.reg |= uint64(r.data[r.pos]) << (56 - r.bits)
		r.pos++
		r.bits += 8
	}
}

// peek32 returns the top 32 bits currently available, zero-padded if
// the input is exhausted.
func (r *bitReader) peek32() uint32 {
	return uint32(r.reg >> 32)
}

func (r *bitReader) consume(n int) {
	r.reg <<= uint(n)
	r.bits -= n
	if r.bits < 0 {
		r.bits = 0
	}
	r.fill()
}

func (r *bitReader) exhausted() bool { return r.pos >= len(r.data) && r.bits <= 0 }

// decodeHuffRecord decodes one Huffman-coded text record against the
// parsed HUFF/CDIC tables, producing up to textRecordSize bytes of
// plain text.
func (hc *huffCDIC) decodeHuffRecord(data []byte, textRecordSize int) ([]byte, error) {
	out := make([]byte, 0, textRecordSize)
	br := newBitReader(data)

	for len(out) < textRecordSize {
		if br.exhausted() {
			break
		}

		code := br.peek32()
		lead := code >> 24 // top 8 bits select table1
		entry := hc.tables.table1[lead]

		term := entry&0x80 != 0
		codelen := int(entry & 0x1F)
		if codelen == 0 {
			return nil, fmt.Errorf("%w: zero-length Huffman code", ErrDataCorrupt)
		}

		var symbolIndex uint32
		if term {
			maxcode := entry >> 8
			symbolIndex = maxcode - (code >> uint(32-codelen))
		} else {
			found := false
			for cl := 9; cl <= 32; cl++ {
				if code < hc.tables.maxcode[min32i(cl, 32)] {
					codelen = cl
					symbolIndex = (hc.tables.maxcode[cl] - code) >> uint(32-cl)
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("%w: no matching Huffman code length", ErrDataCorrupt)
			}
		}

		br.consume(codelen)

		resolved, err := hc.resolveSymbol(symbolIndex, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}

	if len(out) > textRecordSize {
		out = out[:textRecordSize]
	}
	return out, nil
}

func min32i(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// resolveSymbol looks up a Huffman symbol index in the CDIC
// dictionaries, recursively expanding dictionary back-references up
// to maxDictDepth deep.
func (hc *huffCDIC) resolveSymbol(symbolIndex uint32, depth int) ([]byte, error) {
	if depth > maxDictDepth {
		return nil, fmt.Errorf("%w: CDIC dictionary recursion exceeded depth %d", ErrDataCorrupt, maxDictDepth)
	}

	cdicIndex := symbolIndex >> hc.codeLength
	within := symbolIndex & ((1 << hc.codeLength) - 1)

	if int(cdicIndex) >= len(hc.dicts) {
		return nil, fmt.Errorf("%w: CDIC index %d out of range (have %d)", ErrDataCorrupt, cdicIndex, len(hc.dicts))
	}
	dict := hc.dicts[cdicIndex]
	if int(within) >= len(dict.offsets) {
		return nil, fmt.Errorf("%w: CDIC entry %d out of range (have %d)", ErrDataCorrupt, within, len(dict.offsets))
	}

	off := int(dict.offsets[within])
	if off+2 > len(dict.body) {
		return nil, fmt.Errorf("%w: CDIC entry offset %d exceeds record", ErrDataCorrupt, off)
	}
	length := be16(dict.body[off : off+2])
	isDictRef := length&0x8000 != 0
	length &= 0x7FFF

	start := off + 2
	end := start + int(length)
	if end > len(dict.body) {
		return nil, fmt.Errorf("%w: CDIC entry body at %d exceeds record", ErrDataCorrupt, start)
	}
	payload := dict.body[start:end]

	if !isDictRef {
		return payload, nil
	}

	// A dictionary reference stores further symbol indices, each
	// re-entering the same resolution.
	var out []byte
	b := newBuffer(payload)
	for b.remaining() >= 2 {
		idx, err := b.u16be()
		if err != nil {
			break
		}
		resolved, err := hc.resolveSymbol(uint32(idx), depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	return out, nil
}
