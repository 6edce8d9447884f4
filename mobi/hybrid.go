package mobi

import "fmt"

// boundaryMagic is the 8-byte marker that opens the KF8 boundary
// record pointed to by EXTH tag 121.
const boundaryMagic = "BOUNDARY"

// HybridInfo describes a combined KF7/KF8 ("hybrid") file: a single
// PDB container carrying a classic MOBI6 rendition in its first
// records and a KF8 rendition starting at a boundary record, located
// through EXTH tag 121.
type HybridInfo struct {
	BoundaryRecordIndex int
	KF8RecordIndex      int
	KF8Prefix           Record0Prefix
	KF8Header           *MobiHeader
	KF8EXTH             EXTHMap
}

// detectHybrid looks for EXTH tag 121 in exth and, if present, parses
// the KF8 Record 0 it points to. It returns (nil, nil) when the
// tag is absent: a plain, non-hybrid file.
func detectHybrid(exth EXTHMap, records []RecordEntry) (*HybridInfo, error) {
	tag, ok := exth.First(EXTHKF8Boundary)
	if !ok {
		return nil, nil
	}
	idx := int(tag.Number) - 1
	if idx <= 0 || idx >= len(records) {
		return nil, fmt.Errorf("%w: KF8 boundary record index %d out of range (have %d records)",
			ErrDataCorrupt, idx, len(records))
	}

	boundary := records[idx].Data
	if len(boundary) < len(boundaryMagic) || string(boundary[:len(boundaryMagic)]) != boundaryMagic {
		return nil, fmt.Errorf("%w: record %d is not a BOUNDARY marker", ErrDataCorrupt, idx)
	}

	kf8Rec0Index := idx + 1
	if kf8Rec0Index >= len(records) {
		return nil, fmt.Errorf("%w: no record follows BOUNDARY at %d for the KF8 header", ErrDataCorrupt, idx)
	}

	kf8Rec0 := records[kf8Rec0Index].Data
	prefix, header, err := ParseRecord0(kf8Rec0)
	if err != nil {
		return nil, fmt.Errorf("KF8 record 0 at %d: %w", kf8Rec0Index, err)
	}

	var kf8EXTH EXTHMap
	if header != nil {
		kf8EXTH, err = parseEXTHBlock(kf8Rec0, record0PrefixSize+int(header.HeaderLength), header)
		if err != nil {
			return nil, fmt.Errorf("KF8 EXTH at record %d: %w", kf8Rec0Index, err)
		}
	}

	return &HybridInfo{
		BoundaryRecordIndex: idx,
		KF8RecordIndex:      kf8Rec0Index,
		KF8Prefix:           prefix,
		KF8Header:           header,
		KF8EXTH:             kf8EXTH,
	}, nil
}

// IsHybrid reports whether this document carries both a KF7 and a
// KF8 rendition.
func (h *HybridInfo) IsHybrid() bool { return h != nil }
