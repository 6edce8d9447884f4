package mobi

import (
	"bytes"
	"fmt"
)

// Palm Database on-disk layout constants.
const (
	pdbHeaderSize = 78
	pdbType       = "BOOK"
	pdbCreator    = "MOBI"

	// palmEpochOffset is the number of seconds between the Mac/Palm
	// epoch (1904-01-01) and the Unix epoch (1970-01-01).
	palmEpochOffset = 2082844800
)

// PalmDBHeader is the fixed 78-byte Palm Database header.
type PalmDBHeader struct {
	Name               string
	Attributes         uint16
	Version            uint16
	CreationDate       int64 // Unix seconds, disambiguated per-field from the raw u32
	ModificationDate   int64
	LastBackupDate     int64
	ModificationNumber uint32
	AppInfoOffset      uint32
	SortInfoOffset     uint32
	Type               string
	Creator            string
	UniqueIDSeed       uint32
	NextRecordListID   uint32
	RecordCount        uint16
}

// RecordEntry describes one entry of the PDB record directory plus the
// record's materialized payload and computed size.
type RecordEntry struct {
	Offset     uint32
	Attributes uint8
	UID        uint32 // 24-bit unique id
	Data       []byte
}

// palmTime converts a raw 32-bit Palm timestamp field to Unix seconds.
// Bit 31 disambiguates the epoch: when set, the value is already
// Mac/Palm-epoch seconds and needs the offset subtracted; some
// producers instead write Unix-epoch seconds directly with bit 31
// clear.
func palmTime(raw uint32) int64 {
	if raw&0x80000000 != 0 {
		return int64(raw) - palmEpochOffset
	}
	return int64(raw)
}

// parsePalmDBHeader parses the fixed Palm Database header. It does
// not validate type/creator; callers that
// require a Mobipocket file check that separately so metadata-only
// consumers can still inspect non-MOBI PalmDB files if desired.
func parsePalmDBHeader(data []byte) (*PalmDBHeader, error) {
	if len(data) < pdbHeaderSize {
		return nil, fmt.Errorf("%w: PDB header needs %d bytes, have %d", ErrBufferEnd, pdbHeaderSize, len(data))
	}
	b := newBuffer(data)

	name, err := b.copyString(32)
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i] // the name field is NUL-terminated and NUL-padded
	}
	attrs, err := b.u16be()
	if err != nil {
		return nil, err
	}
	version, err := b.u16be()
	if err != nil {
		return nil, err
	}
	creation, err := b.u32be()
	if err != nil {
		return nil, err
	}
	modification, err := b.u32be()
	if err != nil {
		return nil, err
	}
	backup, err := b.u32be()
	if err != nil {
		return nil, err
	}
	modNum, err := b.u32be()
	if err != nil {
		return nil, err
	}
	appInfo, err := b.u32be()
	if err != nil {
		return nil, err
	}
	sortInfo, err := b.u32be()
	if err != nil {
		return nil, err
	}
	typ, err := b.take(4)
	if err != nil {
		return nil, err
	}
	creator, err := b.take(4)
	if err != nil {
		return nil, err
	}
	seed, err := b.u32be()
	if err != nil {
		return nil, err
	}
	nextID, err := b.u32be()
	if err != nil {
		return nil, err
	}
	recCount, err := b.u16be()
	if err != nil {
		return nil, err
	}

	return &PalmDBHeader{
		Name:               string(name),
		Attributes:         attrs,
		Version:            version,
		CreationDate:       palmTime(creation),
		ModificationDate:   palmTime(modification),
		LastBackupDate:     palmTime(backup),
		ModificationNumber: modNum,
		AppInfoOffset:      appInfo,
		SortInfoOffset:     sortInfo,
		Type:               string(typ),
		Creator:            string(creator),
		UniqueIDSeed:       seed,
		NextRecordListID:   nextID,
		RecordCount:        recCount,
	}, nil
}

// parseRecordDirectory reads n 8-byte directory entries starting right
// after the PDB header and materializes each record's payload by
// computing its size from consecutive offsets.
func parseRecordDirectory(fileData []byte, n int) ([]RecordEntry, error) {
	b := newBuffer(fileData)
	if err := b.seek(pdbHeaderSize); err != nil {
		return nil, err
	}

	entries := make([]RecordEntry, n)
	for i := 0; i < n; i++ {
		offset, err := b.u32be()
		if err != nil {
			return nil, fmt.Errorf("record directory entry %d: %w", i, err)
		}
		attr, err := b.u8()
		if err != nil {
			return nil, fmt.Errorf("record directory entry %d: %w", i, err)
		}
		uidHi, err := b.u8()
		if err != nil {
			return nil, fmt.Errorf("record directory entry %d: %w", i, err)
		}
		uidMid, err := b.u8()
		if err != nil {
			return nil, fmt.Errorf("record directory entry %d: %w", i, err)
		}
		uidLo, err := b.u8()
		if err != nil {
			return nil, fmt.Errorf("record directory entry %d: %w", i, err)
		}
		uid := uint32(uidHi)<<16 | uint32(uidMid)<<8 | uint32(uidLo)

		entries[i] = RecordEntry{
			Offset:     offset,
			Attributes: attr,
			UID:        uid,
		}

		if i > 0 && entries[i].Offset <= entries[i-1].Offset {
			return nil, fmt.Errorf("%w: record offsets non-monotonic at entry %d (%d <= %d)",
				ErrDataCorrupt, i, entries[i].Offset, entries[i-1].Offset)
		}
		if int(entries[i].Offset) > len(fileData) {
			return nil, fmt.Errorf("%w: record %d offset %d exceeds file length %d",
				ErrDataCorrupt, i, entries[i].Offset, len(fileData))
		}
	}

	for i := range entries {
		start := int(entries[i].Offset)
		end := len(fileData)
		if i+1 < len(entries) {
			end = int(entries[i+1].Offset)
		}
		if end < start {
			return nil, fmt.Errorf("%w: record %d has negative size (end %d < start %d)", ErrDataCorrupt, i, end, start)
		}
		entries[i].Data = fileData[start:end]
	}

	return entries, nil
}

// ParsePDB parses the Palm Database container: the fixed header plus
// the record directory, materializing every record's payload.
// It returns ErrFileUnsupported if the type/creator pair isn't the
// Mobipocket "BOOK"/"MOBI" combination.
func ParsePDB(data []byte) (*PalmDBHeader, []RecordEntry, error) {
	header, err := parsePalmDBHeader(data)
	if err != nil {
		return nil, nil, fmt.Errorf("PDB header: %w", err)
	}
	if header.Type != pdbType || header.Creator != pdbCreator {
		return nil, nil, fmt.Errorf("%w: type=%q creator=%q, want %q/%q",
			ErrFileUnsupported, header.Type, header.Creator, pdbType, pdbCreator)
	}

	records, err := parseRecordDirectory(data, int(header.RecordCount))
	if err != nil {
		return nil, nil, fmt.Errorf("PDB record directory: %w", err)
	}
	return header, records, nil
}
