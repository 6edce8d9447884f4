package mobi

import (
	"bytes"
	"fmt"
	"io"
)

// mobiHalf is one complete Record-0/MOBI-header/EXTH triple. A plain
// file has exactly one; a hybrid file has two sharing the same
// underlying record list.
type mobiHalf struct {
	rec0       []byte
	prefix     Record0Prefix
	header     *MobiHeader
	exth       EXTHMap
	rec0Index  int // index of this half's Record 0 within Document.Records
}

// Document is the public logical model the decoder produces: a
// parsed Palm Database container plus one or two MOBI renditions
// sharing its record list.
type Document struct {
	PDBHeader *PalmDBHeader
	Records   []RecordEntry

	kf7    mobiHalf
	kf8    *mobiHalf // non-nil only for hybrid files
	active *mobiHalf // points at kf7 or kf8; selected by UseKF7/UseKF8

	boundaryIndex int // -1 when not hybrid
}

// Load parses a complete MOBI file from an in-memory byte slice: the
// PDB container, Record 0 and its MOBI header, EXTH metadata, and (if
// present) the second KF8 rendition of a hybrid file.
func Load(data []byte) (*Document, error) {
	pdbHeader, records, err := ParsePDB(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records in PDB container", ErrDataCorrupt)
	}

	rec0 := records[0].Data
	prefix, header, err := ParseRecord0(rec0)
	if err != nil {
		return nil, fmt.Errorf("record 0: %w", err)
	}

	var exth EXTHMap
	if header != nil {
		exth, err = parseEXTHBlock(rec0, record0PrefixSize+int(header.HeaderLength), header)
		if err != nil {
			return nil, err
		}
	}

	kf7 := mobiHalf{rec0: rec0, prefix: prefix, header: header, exth: exth, rec0Index: 0}

	doc := &Document{
		PDBHeader:     pdbHeader,
		Records:       records,
		kf7:           kf7,
		boundaryIndex: -1,
	}

	hybrid, err := detectHybrid(exth, records)
	if err != nil {
		return nil, err
	}
	if hybrid != nil {
		doc.boundaryIndex = hybrid.BoundaryRecordIndex
		doc.kf8 = &mobiHalf{
			rec0:      records[hybrid.KF8RecordIndex].Data,
			prefix:    hybrid.KF8Prefix,
			header:    hybrid.KF8Header,
			exth:      hybrid.KF8EXTH,
			rec0Index: hybrid.KF8RecordIndex,
		}
	}

	doc.active = &doc.kf7

	return doc, nil
}

// IsMobipocket reports whether the container identified itself as a
// Mobipocket file. Load already rejects any other PDB type/creator
// pair, so once a Document exists this is always true.
func (d *Document) IsMobipocket() bool { return d != nil }

// IsHybrid reports whether this document carries both a KF7 and a
// KF8 rendition.
func (d *Document) IsHybrid() bool { return d.kf8 != nil }

// IsEncrypted reports whether the active half's Record 0 declares DRM
// encryption. Metadata remains queryable on an encrypted document;
// only text decompression (ParseText/DumpText) refuses to proceed.
func (d *Document) IsEncrypted() bool { return d.active.prefix.EncryptionType != EncryptionNone }

// UseKF7 selects the legacy MOBI6 rendition as active. It is a no-op
// on a non-hybrid document.
func (d *Document) UseKF7() { d.active = &d.kf7 }

// UseKF8 selects the KF8 rendition as active, if this document is
// hybrid.
func (d *Document) UseKF8() error {
	if d.kf8 == nil {
		return fmt.Errorf("%w: document is not hybrid", ErrParamError)
	}
	d.active = d.kf8
	return nil
}

// SwapHalves exchanges which rendition is active.
func (d *Document) SwapHalves() error {
	if d.kf8 == nil {
		return fmt.Errorf("%w: document is not hybrid", ErrParamError)
	}
	if d.active == &d.kf7 {
		d.active = d.kf8
	} else {
		d.active = &d.kf7
	}
	return nil
}

// GetFileVersion returns the active half's declared MOBI file version.
func (d *Document) GetFileVersion() (uint32, bool) {
	if d.active.header == nil || !d.active.header.FileVersion.Present {
		return 0, false
	}
	return d.active.header.FileVersion.Value, true
}

// GetLocale returns the active half's locale code and its IANA subtag
// when the locale field is present and set. The subtag is "" when the
// code has no entry in the locale table.
func (d *Document) GetLocale() (code uint32, tag string, ok bool) {
	if d.active.header == nil || !d.active.header.Locale.isSet() {
		return 0, "", false
	}
	code = d.active.header.Locale.Value
	return code, localeString(code), true
}

// GetFullname reads the active half's book title from Record 0 using
// the header's full_name_offset/full_name_length fields, decoded
// through the half's declared text encoding.
func (d *Document) GetFullname() (string, error) {
	h := d.active.header
	if h == nil || !h.FullNameOffset.Present || !h.FullNameLength.Present {
		return "", fmt.Errorf("%w: full name fields absent", ErrParamError)
	}
	start := int(h.FullNameOffset.Value)
	length := int(h.FullNameLength.Value)
	if start < 0 || length < 0 || start+length > len(d.active.rec0) {
		return "", fmt.Errorf("%w: full name range [%d,%d) exceeds record 0", ErrDataCorrupt, start, start+length)
	}
	encoding := uint32(TextEncodingUTF8)
	if h.TextEncoding.Present {
		encoding = h.TextEncoding.Value
	}
	return decodeMetadataString(d.active.rec0[start:start+length], encoding)
}

// EXTH returns the active half's EXTH metadata map.
func (d *Document) EXTH() EXTHMap { return d.active.exth }

// Header returns the active half's parsed MOBI header, or nil if
// Record 0 carried no "MOBI" magic.
func (d *Document) Header() *MobiHeader { return d.active.header }

// RecordByUID performs an O(n) scan for the record carrying the given
// unique id.
func (d *Document) RecordByUID(uid uint32) (RecordEntry, bool) {
	for _, r := range d.Records {
		if r.UID == uid {
			return r, true
		}
	}
	return RecordEntry{}, false
}

// RecordBySeq returns the record at sequence number n.
func (d *Document) RecordBySeq(n int) (RecordEntry, bool) {
	if n < 0 || n >= len(d.Records) {
		return RecordEntry{}, false
	}
	return d.Records[n], true
}

// DeleteRecordBySeq removes the record at sequence number n, shifting
// every later index down by one. Any half whose rec0Index, and the
// boundary index, pointed after n is re-pointed to track the shift.
func (d *Document) DeleteRecordBySeq(n int) error {
	if n < 0 || n >= len(d.Records) {
		return fmt.Errorf("%w: record index %d out of range", ErrParamError, n)
	}
	d.Records = append(d.Records[:n], d.Records[n+1:]...)

	adjust := func(h *mobiHalf) {
		if h == nil {
			return
		}
		if h.rec0Index > n {
			h.rec0Index--
		}
	}
	adjust(&d.kf7)
	adjust(d.kf8)
	if d.boundaryIndex > n {
		d.boundaryIndex--
	}
	return nil
}

// textRecordRange returns the record indices holding the active
// half's compressed text flow.
func (d *Document) textRecordRange() (int, int) {
	start := d.active.rec0Index + 1
	end := start + int(d.active.prefix.TextRecordCount)
	if end > len(d.Records) {
		end = len(d.Records)
	}
	return start, end
}

// ParseText decompresses and concatenates every text record of the
// active half into the reconstructed UTF-8 document text. The Record
// 0 prefix selects which compression scheme to apply; HUFF/CDIC
// records are located through the MOBI header's Huffman fields. Text
// of a CP1252 book is converted to UTF-8; any other text is returned
// as stored.
func (d *Document) ParseText() (string, error) {
	var buf bytes.Buffer
	if err := d.DumpText(&buf); err != nil {
		return "", err
	}
	if h := d.active.header; h != nil && h.TextEncoding.Present && h.TextEncoding.Value == TextEncodingCP1252 {
		return decodeCP1252(buf.Bytes())
	}
	return buf.String(), nil
}

// DumpText streams the active half's decompressed text flow to w, as
// stored, without character-encoding conversion.
func (d *Document) DumpText(w io.Writer) error {
	p := d.active.prefix
	if p.EncryptionType != EncryptionNone {
		return ErrFileEncrypted
	}

	var hc *huffCDIC
	if p.Compression == CompressionHuffCDIC {
		var err error
		hc, err = d.buildHuffCDIC()
		if err != nil {
			return err
		}
	}

	start, end := d.textRecordRange()
	extraFlags := uint32(0)
	if d.active.header != nil && d.active.header.ExtraFlags.Present {
		extraFlags = d.active.header.ExtraFlags.Value
	}

	for i := start; i < end; i++ {
		raw := d.Records[i].Data
		trimmed, err := stripTrailers(raw, extraFlags)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		var plain []byte
		switch p.Compression {
		case CompressionNone:
			plain = trimmed
		case CompressionPalmDOC:
			plain, err = decompressPalmDOC(trimmed)
		case CompressionHuffCDIC:
			plain, err = hc.decodeHuffRecord(trimmed, int(p.TextRecordSize))
		default:
			return fmt.Errorf("%w: unknown compression code %d", ErrFileUnsupported, p.Compression)
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		if _, err := w.Write(plain); err != nil {
			return err
		}
	}
	return nil
}

// buildHuffCDIC locates and parses the HUFF record and every CDIC
// dictionary record referenced by the active half's MOBI header.
func (d *Document) buildHuffCDIC() (*huffCDIC, error) {
	h := d.active.header
	if h == nil || !h.HuffmanRecordOffset.Present || !h.HuffmanRecordCount.Present {
		return nil, fmt.Errorf("%w: HUFF/CDIC fields absent for Huffman-compressed text", ErrDataCorrupt)
	}
	first := int(h.HuffmanRecordOffset.Value)
	count := int(h.HuffmanRecordCount.Value)
	if count < 1 || first < 0 || first+count > len(d.Records) {
		return nil, fmt.Errorf("%w: HUFF/CDIC record range [%d,%d) out of bounds", ErrDataCorrupt, first, first+count)
	}

	huffRec := d.Records[first].Data
	cdicRecs := make([][]byte, 0, count-1)
	for i := first + 1; i < first+count; i++ {
		cdicRecs = append(cdicRecs, d.Records[i].Data)
	}
	return parseHuffCDIC(huffRec, cdicRecs)
}

// ExistsFDST, ExistsGuide, ExistsHuffman, ExistsDRM delegate to the
// active half's header.
func (d *Document) ExistsFDST() bool    { return d.active.header.ExistsFDST() }
func (d *Document) ExistsGuide() bool   { return d.active.header.ExistsGuide() }
func (d *Document) ExistsHuffman() bool { return d.active.header.ExistsHuffman() }
func (d *Document) ExistsDRM() bool     { return d.active.header.ExistsDRM() }
