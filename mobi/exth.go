// Package mobi decodes Mobipocket (MOBI/AZW/KF7/KF8) e-book files: the
// Palm Database container, the Record-0/MOBI header, EXTH metadata,
// the PalmDOC and HUFF/CDIC text compression schemes, and the
// embedded resource records (images, fonts, audio, video).
package mobi

import (
	"fmt"
)

const (
	exthFlagPresent = 0x40 // bit 6 of exth_flags
	exthMagic       = "EXTH"
)

// exthValueKind classifies how an EXTH tag's payload should be
// interpreted.
type exthValueKind int

const (
	exthNumeric exthValueKind = iota
	exthString
	exthBinary
)

// EXTH tag identifiers, covering the full well-known tag set
// documented across the MOBI ecosystem.
const (
	EXTHDRMServerID     = 1
	EXTHDRMCommerceID   = 2
	EXTHDRMEbookBaseID  = 3
	EXTHAuthor          = 100
	EXTHPublisher       = 101
	EXTHImprint         = 102
	EXTHDescription     = 103
	EXTHISBN            = 104
	EXTHSubject         = 105
	EXTHPublishedDate   = 106
	EXTHReview          = 107
	EXTHContributor     = 108
	EXTHRights          = 109
	EXTHSubjectCode     = 110
	EXTHType            = 111
	EXTHSource          = 112
	EXTHASIN            = 113
	EXTHVersion         = 114
	EXTHSample          = 115
	EXTHStartReading    = 116
	EXTHAdultRating     = 117
	EXTHRetailPrice     = 118
	EXTHCurrency        = 119
	EXTHKF8Boundary     = 121
	EXTHFixedLayout     = 122
	EXTHBookType        = 123
	EXTHOrientationLock = 124
	EXTHResourceCount   = 125
	EXTHOrigResolution  = 126
	EXTHZeroGutter      = 127
	EXTHZeroMargin      = 128
	EXTHK8CoverURI      = 129
	EXTHDictShortName   = 200
	EXTHCoverOffset     = 201
	EXTHThumbOffset     = 202
	EXTHHasFakeCover    = 203
	EXTHCreatorSoftware = 204
	EXTHCreatorMajor    = 205
	EXTHCreatorMinor    = 206
	EXTHCreatorBuild    = 207
	EXTHCDEContentType  = 501
	EXTHLastUpdate      = 502
	EXTHUpdatedTitle    = 503
	EXTHLanguage        = 524
	EXTHInputLang       = 525
	EXTHOutputLang      = 526
)

// exthTagKinds is the static tag→type table. A tag absent from this
// table is retained as binary.
var exthTagKinds = map[uint32]exthValueKind{
	EXTHDRMServerID:     exthString,
	EXTHDRMCommerceID:   exthString,
	EXTHDRMEbookBaseID:  exthString,
	EXTHAuthor:          exthString,
	EXTHPublisher:       exthString,
	EXTHImprint:         exthString,
	EXTHDescription:     exthString,
	EXTHISBN:            exthString,
	EXTHSubject:         exthString,
	EXTHPublishedDate:   exthString,
	EXTHReview:          exthString,
	EXTHContributor:     exthString,
	EXTHRights:          exthString,
	EXTHSubjectCode:     exthString,
	EXTHType:            exthString,
	EXTHSource:          exthString,
	EXTHASIN:            exthString,
	EXTHVersion:         exthString,
	EXTHSample:          exthNumeric,
	EXTHStartReading:    exthNumeric,
	EXTHAdultRating:     exthNumeric,
	EXTHRetailPrice:     exthString,
	EXTHCurrency:        exthString,
	EXTHKF8Boundary:     exthNumeric,
	EXTHFixedLayout:     exthString,
	EXTHBookType:        exthString,
	EXTHOrientationLock: exthString,
	EXTHResourceCount:   exthNumeric,
	EXTHOrigResolution:  exthString,
	EXTHZeroGutter:      exthString,
	EXTHZeroMargin:      exthString,
	EXTHK8CoverURI:      exthString,
	EXTHDictShortName:   exthString,
	EXTHCoverOffset:     exthNumeric,
	EXTHThumbOffset:     exthNumeric,
	EXTHHasFakeCover:    exthNumeric,
	EXTHCreatorSoftware: exthNumeric,
	EXTHCreatorMajor:    exthNumeric,
	EXTHCreatorMinor:    exthNumeric,
	EXTHCreatorBuild:    exthNumeric,
	EXTHCDEContentType:  exthString,
	EXTHLastUpdate:      exthString,
	EXTHLanguage:        exthString,
	EXTHInputLang:       exthString,
	EXTHOutputLang:      exthString,
}

// EXTHValue is one decoded EXTH record.
type EXTHValue struct {
	Tag    uint32
	Kind   exthValueKind
	Raw    []byte // payload, excluding the 8-byte tag/length header
	Number uint32 // valid when Kind == exthNumeric
	Text   string // valid when Kind == exthString, already UTF-8
}

// EXTHMap is a multi-map: one tag may repeat, and insertion order is
// preserved per tag.
type EXTHMap map[uint32][]EXTHValue

// ByTag returns every value recorded under tag, in file order.
func (m EXTHMap) ByTag(tag uint32) []EXTHValue { return m[tag] }

// First returns the first value recorded under tag, if any.
func (m EXTHMap) First(tag uint32) (EXTHValue, bool) {
	vs := m[tag]
	if len(vs) == 0 {
		return EXTHValue{}, false
	}
	return vs[0], true
}

// parseEXTHBlock locates and parses the EXTH block that follows one
// Record-0/MOBI header pair, if exth_flags bit 6 is set. headerEnd is the byte offset within rec0
// where the MOBI header ends (record0PrefixSize + header_length). It
// returns (nil, nil) when the flag is clear or header is nil.
func parseEXTHBlock(rec0 []byte, headerEnd int, header *MobiHeader) (EXTHMap, error) {
	if header == nil || !header.EXTHFlags.Present || header.EXTHFlags.Value&exthFlagPresent == 0 {
		return nil, nil
	}
	if headerEnd > len(rec0) {
		return nil, fmt.Errorf("%w: EXTH offset %d exceeds record", ErrDataCorrupt, headerEnd)
	}

	encoding := uint32(TextEncodingUTF8)
	if header.TextEncoding.Present {
		encoding = header.TextEncoding.Value
	}

	exth, err := parseEXTH(rec0[headerEnd:], encoding)
	if err != nil {
		return nil, fmt.Errorf("EXTH block: %w", err)
	}
	return exth, nil
}

// parseEXTH parses the EXTH record list. textEncoding
// selects how string tags are decoded: CP1252 (1252) or passthrough
// (65001/UTF-8). Callers only reach here after checking exth_flags &
// 0x40; parseEXTH itself just expects to find the "EXTH" magic at
// the start of data.
func parseEXTH(data []byte, textEncoding uint32) (EXTHMap, error) {
	b := newBuffer(data)

	magic, err := b.take(4)
	if err != nil {
		return nil, fmt.Errorf("EXTH magic: %w", err)
	}
	if string(magic) != exthMagic {
		return nil, fmt.Errorf("%w: EXTH magic %q", ErrDataCorrupt, magic)
	}
	if _, err := b.u32be(); err != nil { // header_length, not needed beyond validation
		return nil, fmt.Errorf("EXTH header length: %w", err)
	}
	count, err := b.u32be()
	if err != nil {
		return nil, fmt.Errorf("EXTH record count: %w", err)
	}

	out := make(EXTHMap, count)
	for i := uint32(0); i < count; i++ {
		tag, err := b.u32be()
		if err != nil {
			return nil, fmt.Errorf("EXTH record %d tag: %w", i, err)
		}
		length, err := b.u32be()
		if err != nil {
			return nil, fmt.Errorf("EXTH record %d length: %w", i, err)
		}
		if length < 8 {
			return nil, fmt.Errorf("%w: EXTH record %d length %d below header size", ErrDataCorrupt, i, length)
		}
		payload, err := b.take(int(length) - 8)
		if err != nil {
			return nil, fmt.Errorf("EXTH record %d payload: %w", i, err)
		}

		v, err := decodeEXTHValue(tag, payload, textEncoding)
		if err != nil {
			return nil, fmt.Errorf("EXTH record %d (tag %d): %w", i, tag, err)
		}
		out[tag] = append(out[tag], v)
	}

	return out, nil
}

// decodeEXTHValue decodes one EXTH payload according to the static
// tag→type table. Numeric payloads are clamped to big-endian
// integers of their own width, up to 4 bytes, rather than always
// requiring exactly 4 bytes.
func decodeEXTHValue(tag uint32, payload []byte, textEncoding uint32) (EXTHValue, error) {
	kind, known := exthTagKinds[tag]
	if !known {
		kind = exthBinary
	}

	v := EXTHValue{Tag: tag, Kind: kind, Raw: payload}

	switch kind {
	case exthNumeric:
		n := payload
		if len(n) > 4 {
			n = n[len(n)-4:]
		}
		var num uint32
		for _, c := range n {
			num = num<<8 | uint32(c)
		}
		v.Number = num
	case exthString:
		text, err := decodeMetadataString(payload, textEncoding)
		if err != nil {
			return EXTHValue{}, err
		}
		v.Text = text
	case exthBinary:
		// Raw is already set; nothing further to decode.
	}

	return v, nil
}
