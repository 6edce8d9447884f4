package mobi

import (
	"fmt"
)

// Compression codes from the Record-0 prefix.
const (
	CompressionNone     = 1
	CompressionPalmDOC  = 2
	CompressionHuffCDIC = 17480
)

// Encryption codes from the Record-0 prefix.
const (
	EncryptionNone = 0
	EncryptionOld  = 1
	EncryptionMobi = 2
)

const (
	record0PrefixSize = 16
	mobiHeaderMinLen  = 24
	notSet            = 0xFFFFFFFF
)

// Record0Prefix is the fixed 16-byte PalmDOC-style prefix of Record 0.
type Record0Prefix struct {
	Compression     uint16
	TextLength      uint32
	TextRecordCount uint16
	TextRecordSize  uint16 // always 4096 in practice
	EncryptionType  uint16
	Reserved        uint16
}

// optU32 models "field absent from this file" (Present == false)
// distinctly from "field present but carrying the 0xFFFFFFFF not-set
// sentinel" (Present == true, Value == notSet). Collapsing the two
// loses information the exists_* query predicates need.
type optU32 struct {
	Present bool
	Value   uint32
}

func (o optU32) isSet() bool { return o.Present && o.Value != notSet }

// MobiHeader is the variable-length MOBI header that follows the
// Record-0 prefix. Every field is an optU32 rather than a bare value:
// a field whose offset falls at or past the header's declared length
// is simply never populated.
type MobiHeader struct {
	HeaderLength uint32 // always present once the "MOBI" magic matched

	MobiType              optU32
	TextEncoding          optU32
	UniqueID              optU32
	FileVersion           optU32
	OrthographicIndex     optU32
	InflectionIndex       optU32
	IndexNames            optU32
	IndexKeys             optU32
	ExtraIndex0           optU32
	ExtraIndex1           optU32
	ExtraIndex2           optU32
	ExtraIndex3           optU32
	ExtraIndex4           optU32
	ExtraIndex5           optU32
	FirstNonBookRecord    optU32
	FullNameOffset        optU32
	FullNameLength        optU32
	Locale                optU32
	InputLanguage         optU32
	OutputLanguage        optU32
	MinVersion            optU32
	FirstImageIndex       optU32
	HuffmanRecordOffset   optU32
	HuffmanRecordCount    optU32
	HuffmanTableOffset    optU32
	HuffmanTableLength    optU32
	EXTHFlags             optU32
	DRMOffset             optU32
	DRMCount              optU32
	DRMSize               optU32
	DRMFlags              optU32
	FirstContentRecord    optU32 // u16 field, widened
	LastContentRecord     optU32 // u16 field, widened
	FCISRecord            optU32
	FLISRecord            optU32
	GuideIndex            optU32
	FDSTRecord            optU32
	FDSTCount             optU32
	FragmentIndex         optU32
	SkeletonIndex         optU32
	DATPRecord            optU32
	CoverOffset           optU32
	ThumbnailOffset       optU32
	ExtraFlags            optU32
	INDXRecordOffset      optU32
}

// Byte offsets of MOBI header fields, counted from the "MOBI" magic
// (offset 0 here is the magic's first byte). The layout through
// EXTHFlags (offset 112) and the DRM/content-record/FCIS/FLIS block
// (152-199) matches the widely corroborated MobileRead Wiki "MOBI
// Header" layout. The KF8-era fields
// (FDST/fragment/skeleton/DATP/guide/cover/extra_flags/INDX), which
// are only sparsely documented even there, are placed at their
// commonly cited tail offsets.
const (
	offMobiType            = 8
	offTextEncoding        = 12
	offUniqueID            = 16
	offFileVersion         = 20
	offOrthographicIndex   = 24
	offInflectionIndex     = 28
	offIndexNames          = 32
	offIndexKeys           = 36
	offExtraIndex0         = 40
	offExtraIndex1         = 44
	offExtraIndex2         = 48
	offExtraIndex3         = 52
	offExtraIndex4         = 56
	offExtraIndex5         = 60
	offFirstNonBookRecord  = 64
	offFullNameOffset      = 68
	offFullNameLength      = 72
	offLocale              = 76
	offInputLanguage       = 80
	offOutputLanguage      = 84
	offMinVersion          = 88
	offFirstImageIndex     = 92
	offHuffmanRecordOffset = 96
	offHuffmanRecordCount  = 100
	offHuffmanTableOffset  = 104
	offHuffmanTableLength  = 108
	offEXTHFlags           = 112
	// 32 reserved bytes at 116..147, 4 reserved at 148..151
	offDRMOffset = 152
	offDRMCount  = 156
	offDRMSize   = 160
	offDRMFlags  = 164
	// 8 reserved bytes at 168..175
	offFirstContentRecord = 176 // u16
	offLastContentRecord  = 178 // u16
	// u32 reserved at 180
	offFCISRecord = 184
	// u32 reserved at 188 (FCIS count)
	offFLISRecord = 192
	// u32 reserved at 196 (FLIS count), 8 reserved at 200..207
	offFDSTRecord       = 208
	offFDSTCount        = 212
	offFragmentIndex    = 216
	offSkeletonIndex    = 220
	offDATPRecord       = 224
	offGuideIndex       = 228
	offCoverOffset      = 232
	offThumbnailOffset  = 236
	offExtraFlags       = 242 // u16
	offINDXRecordOffset = 244
)

// headerFieldTable centralizes every field's byte offset so ParseRecord0
// is a straight-line loop instead of 40 repeated
// "if o+4<=headerLength" blocks, matching the self-describing-length
// model the MOBI header actually uses.
type headerField struct {
	offset int
	width  int // 2 or 4
	set    func(h *MobiHeader, v uint32)
}

func headerFieldTable() []headerField {
	return []headerField{
		{offMobiType, 4, func(h *MobiHeader, v uint32) { h.MobiType = optU32{true, v} }},
		{offTextEncoding, 4, func(h *MobiHeader, v uint32) { h.TextEncoding = optU32{true, v} }},
		{offUniqueID, 4, func(h *MobiHeader, v uint32) { h.UniqueID = optU32{true, v} }},
		{offFileVersion, 4, func(h *MobiHeader, v uint32) { h.FileVersion = optU32{true, v} }},
		{offOrthographicIndex, 4, func(h *MobiHeader, v uint32) { h.OrthographicIndex = optU32{true, v} }},
		{offInflectionIndex, 4, func(h *MobiHeader, v uint32) { h.InflectionIndex = optU32{true, v} }},
		{offIndexNames, 4, func(h *MobiHeader, v uint32) { h.IndexNames = optU32{true, v} }},
		{offIndexKeys, 4, func(h *MobiHeader, v uint32) { h.IndexKeys = optU32{true, v} }},
		{offExtraIndex0, 4, func(h *MobiHeader, v uint32) { h.ExtraIndex0 = optU32{true, v} }},
		{offExtraIndex1, 4, func(h *MobiHeader, v uint32) { h.ExtraIndex1 = optU32{true, v} }},
		{offExtraIndex2, 4, func(h *MobiHeader, v uint32) { h.ExtraIndex2 = optU32{true, v} }},
		{offExtraIndex3, 4, func(h *MobiHeader, v uint32) { h.ExtraIndex3 = optU32{true, v} }},
		{offExtraIndex4, 4, func(h *MobiHeader, v uint32) { h.ExtraIndex4 = optU32{true, v} }},
		{offExtraIndex5, 4, func(h *MobiHeader, v uint32) { h.ExtraIndex5 = optU32{true, v} }},
		{offFirstNonBookRecord, 4, func(h *MobiHeader, v uint32) { h.FirstNonBookRecord = optU32{true, v} }},
		{offFullNameOffset, 4, func(h *MobiHeader, v uint32) { h.FullNameOffset = optU32{true, v} }},
		{offFullNameLength, 4, func(h *MobiHeader, v uint32) { h.FullNameLength = optU32{true, v} }},
		{offLocale, 4, func(h *MobiHeader, v uint32) { h.Locale = optU32{true, v} }},
		{offInputLanguage, 4, func(h *MobiHeader, v uint32) { h.InputLanguage = optU32{true, v} }},
		{offOutputLanguage, 4, func(h *MobiHeader, v uint32) { h.OutputLanguage = optU32{true, v} }},
		{offMinVersion, 4, func(h *MobiHeader, v uint32) { h.MinVersion = optU32{true, v} }},
		{offFirstImageIndex, 4, func(h *MobiHeader, v uint32) { h.FirstImageIndex = optU32{true, v} }},
		{offHuffmanRecordOffset, 4, func(h *MobiHeader, v uint32) { h.HuffmanRecordOffset = optU32{true, v} }},
		{offHuffmanRecordCount, 4, func(h *MobiHeader, v uint32) { h.HuffmanRecordCount = optU32{true, v} }},
		{offHuffmanTableOffset, 4, func(h *MobiHeader, v uint32) { h.HuffmanTableOffset = optU32{true, v} }},
		{offHuffmanTableLength, 4, func(h *MobiHeader, v uint32) { h.HuffmanTableLength = optU32{true, v} }},
		{offEXTHFlags, 4, func(h *MobiHeader, v uint32) { h.EXTHFlags = optU32{true, v} }},
		{offDRMOffset, 4, func(h *MobiHeader, v uint32) { h.DRMOffset = optU32{true, v} }},
		{offDRMCount, 4, func(h *MobiHeader, v uint32) { h.DRMCount = optU32{true, v} }},
		{offDRMSize, 4, func(h *MobiHeader, v uint32) { h.DRMSize = optU32{true, v} }},
		{offDRMFlags, 4, func(h *MobiHeader, v uint32) { h.DRMFlags = optU32{true, v} }},
		{offFirstContentRecord, 2, func(h *MobiHeader, v uint32) { h.FirstContentRecord = optU32{true, v} }},
		{offLastContentRecord, 2, func(h *MobiHeader, v uint32) { h.LastContentRecord = optU32{true, v} }},
		{offFCISRecord, 4, func(h *MobiHeader, v uint32) { h.FCISRecord = optU32{true, v} }},
		{offFLISRecord, 4, func(h *MobiHeader, v uint32) { h.FLISRecord = optU32{true, v} }},
		{offFDSTRecord, 4, func(h *MobiHeader, v uint32) { h.FDSTRecord = optU32{true, v} }},
		{offFDSTCount, 4, func(h *MobiHeader, v uint32) { h.FDSTCount = optU32{true, v} }},
		{offFragmentIndex, 4, func(h *MobiHeader, v uint32) { h.FragmentIndex = optU32{true, v} }},
		{offSkeletonIndex, 4, func(h *MobiHeader, v uint32) { h.SkeletonIndex = optU32{true, v} }},
		{offDATPRecord, 4, func(h *MobiHeader, v uint32) { h.DATPRecord = optU32{true, v} }},
		{offGuideIndex, 4, func(h *MobiHeader, v uint32) { h.GuideIndex = optU32{true, v} }},
		{offCoverOffset, 4, func(h *MobiHeader, v uint32) { h.CoverOffset = optU32{true, v} }},
		{offThumbnailOffset, 4, func(h *MobiHeader, v uint32) { h.ThumbnailOffset = optU32{true, v} }},
		{offExtraFlags, 2, func(h *MobiHeader, v uint32) { h.ExtraFlags = optU32{true, v} }},
		{offINDXRecordOffset, 4, func(h *MobiHeader, v uint32) { h.INDXRecordOffset = optU32{true, v} }},
	}
}

// parseRecord0Prefix reads the fixed 16-byte PalmDOC-style prefix of
// Record 0.
func parseRecord0Prefix(b *buffer) (Record0Prefix, error) {
	var p Record0Prefix
	var err error
	if p.Compression, err = b.u16be(); err != nil {
		return p, err
	}
	if _, err = b.u16be(); err != nil { // unused
		return p, err
	}
	if p.TextLength, err = b.u32be(); err != nil {
		return p, err
	}
	if p.TextRecordCount, err = b.u16be(); err != nil {
		return p, err
	}
	if p.TextRecordSize, err = b.u16be(); err != nil {
		return p, err
	}
	if p.EncryptionType, err = b.u16be(); err != nil {
		return p, err
	}
	if p.Reserved, err = b.u16be(); err != nil {
		return p, err
	}
	return p, nil
}

// ParseRecord0 decodes Record 0: the fixed prefix, and — if the bytes
// immediately following it spell "MOBI" — the variable-length MOBI
// header. A Record-0 without the "MOBI" magic is a valid degenerate
// case (a bare PalmDOC file): MobiHeader is nil and the prefix alone
// is enough to drive text decompression.
func ParseRecord0(rec0 []byte) (Record0Prefix, *MobiHeader, error) {
	b := newBuffer(rec0)
	prefix, err := parseRecord0Prefix(b)
	if err != nil {
		return prefix, nil, fmt.Errorf("record 0 prefix: %w", err)
	}

	magic, err := b.peekTake(4)
	if err != nil || string(magic) != "MOBI" {
		return prefix, nil, nil
	}
	if _, err := b.take(4); err != nil {
		return prefix, nil, err
	}

	headerLen, err := b.u32be()
	if err != nil {
		return prefix, nil, fmt.Errorf("MOBI header length: %w", err)
	}
	if headerLen < mobiHeaderMinLen {
		return prefix, nil, fmt.Errorf("%w: MOBI header length %d below minimum %d", ErrDataCorrupt, headerLen, mobiHeaderMinLen)
	}

	headerStart := record0PrefixSize // offset of the "MOBI" magic within rec0
	headerEnd := headerStart + int(headerLen)
	if headerEnd > len(rec0) {
		return prefix, nil, fmt.Errorf("%w: MOBI header length %d exceeds record size", ErrDataCorrupt, headerLen)
	}
	region := rec0[headerStart:headerEnd]

	mh := &MobiHeader{HeaderLength: headerLen}
	for _, f := range headerFieldTable() {
		if f.offset+f.width > int(headerLen) {
			continue // field absent from this file
		}
		if f.offset+f.width > len(region) {
			return prefix, nil, fmt.Errorf("%w: field at offset %d exceeds record bounds", ErrDataCorrupt, f.offset)
		}
		var v uint32
		if f.width == 2 {
			v = uint32(region[f.offset])<<8 | uint32(region[f.offset+1])
		} else {
			v = uint32(region[f.offset])<<24 | uint32(region[f.offset+1])<<16 |
				uint32(region[f.offset+2])<<8 | uint32(region[f.offset+3])
		}
		f.set(mh, v)
	}

	return prefix, mh, nil
}

// ExistsFDST reports whether the FDST section-number field is both
// present in the declared header length and not the not-set sentinel.
func (h *MobiHeader) ExistsFDST() bool { return h != nil && h.FDSTRecord.isSet() }

// ExistsGuide reports whether the guide index field is present and set.
func (h *MobiHeader) ExistsGuide() bool { return h != nil && h.GuideIndex.isSet() }

// ExistsHuffman reports whether HUFF/CDIC section fields are present and set.
func (h *MobiHeader) ExistsHuffman() bool { return h != nil && h.HuffmanRecordOffset.isSet() }

// ExistsDRM reports whether DRM fields are present and set.
func (h *MobiHeader) ExistsDRM() bool { return h != nil && h.DRMOffset.isSet() }

// IsKF8 reports whether this header's declared file version implies
// the KF8 dialect.
func (h *MobiHeader) IsKF8() bool {
	return h != nil && h.FileVersion.Present && h.FileVersion.Value >= 8
}
