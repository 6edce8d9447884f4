package mobi

import (
	"bytes"
	"encoding/binary"
)

// buildPDB assembles a minimal, well-formed Palm Database byte image
// from a name and a list of record payloads: fixed 78-byte header,
// then an 8-byte directory entry per record, then the record bodies
// back to back.
func buildPDB(name string, records [][]byte) []byte {
	var buf bytes.Buffer

	nameBytes := make([]byte, 32)
	copy(nameBytes, name)
	buf.Write(nameBytes)

	writeU16 := func(v uint16) { binary.Write(&buf, binary.BigEndian, v) }
	writeU32 := func(v uint32) { binary.Write(&buf, binary.BigEndian, v) }

	writeU16(0)          // attributes
	writeU16(0)          // version
	writeU32(0)          // creation date
	writeU32(0)          // modification date
	writeU32(0)          // last backup date
	writeU32(0)          // modification number
	writeU32(0)          // app info offset
	writeU32(0)          // sort info offset
	buf.WriteString("BOOK")
	buf.WriteString("MOBI")
	writeU32(0)                        // unique id seed
	writeU32(0)                        // next record list id
	writeU16(uint16(len(records)))     // record count

	dirStart := buf.Len()
	dataStart := dirStart + len(records)*8

	offsets := make([]int, len(records))
	pos := dataStart
	for i, r := range records {
		offsets[i] = pos
		pos += len(r)
	}

	for i := range records {
		writeU32(uint32(offsets[i]))
		buf.WriteByte(0)                    // attribute
		uid := uint32(i + 1)
		buf.WriteByte(byte(uid >> 16))
		buf.WriteByte(byte(uid >> 8))
		buf.WriteByte(byte(uid))
	}

	for _, r := range records {
		buf.Write(r)
	}

	return buf.Bytes()
}

// buildRecord0 assembles a Record 0 payload: the 16-byte PalmDOC
// prefix, optionally followed by a MOBI header and EXTH block.
func buildRecord0(compression uint16, textLength uint32, recordCount, recordSize, encryption uint16, mobiHeaderAndRest []byte) []byte {
	var buf bytes.Buffer
	writeU16 := func(v uint16) { binary.Write(&buf, binary.BigEndian, v) }
	writeU32 := func(v uint32) { binary.Write(&buf, binary.BigEndian, v) }

	writeU16(compression)
	writeU16(0) // unused
	writeU32(textLength)
	writeU16(recordCount)
	writeU16(recordSize)
	writeU16(encryption)
	writeU16(0) // reserved

	buf.Write(mobiHeaderAndRest)
	return buf.Bytes()
}

// buildMobiHeader builds a MOBI header region (the part starting at
// the "MOBI" magic) of the given declared length, with textEncoding,
// fullNameOffset/Length, fileVersion, exthFlags, locale written at
// their fixed offsets (record0.go's offXxx constants) and the rest
// zero-filled.
func buildMobiHeader(headerLength uint32, textEncoding, fullNameOffset, fullNameLength, fileVersion, exthFlags, locale uint32) []byte {
	region := make([]byte, headerLength)
	put := func(off int, v uint32) {
		if off+4 <= len(region) {
			binary.BigEndian.PutUint32(region[off:off+4], v)
		}
	}
	put(offTextEncoding, textEncoding)
	put(offFullNameOffset, fullNameOffset)
	put(offFullNameLength, fullNameLength)
	put(offFileVersion, fileVersion)
	put(offEXTHFlags, exthFlags)
	put(offLocale, locale)

	var buf bytes.Buffer
	buf.WriteString("MOBI")
	binary.Write(&buf, binary.BigEndian, headerLength)
	buf.Write(region[8:]) // region already includes the 8 bytes for magic+length, skip them here
	return buf.Bytes()
}

// buildEXTHBlock assembles a minimal EXTH block: magic, header
// length, record count, then one (tag, length, payload) triple per
// entry, padded to a 4-byte boundary.
func buildEXTHBlock(entries []struct {
	Tag     uint32
	Payload []byte
}) []byte {
	var body bytes.Buffer
	for _, e := range entries {
		binary.Write(&body, binary.BigEndian, e.Tag)
		binary.Write(&body, binary.BigEndian, uint32(8+len(e.Payload)))
		body.Write(e.Payload)
	}

	headerLen := 12 + body.Len()
	for headerLen%4 != 0 {
		body.WriteByte(0)
		headerLen++
	}

	var buf bytes.Buffer
	buf.WriteString("EXTH")
	binary.Write(&buf, binary.BigEndian, uint32(headerLen))
	binary.Write(&buf, binary.BigEndian, uint32(len(entries)))
	buf.Write(body.Bytes())
	return buf.Bytes()
}
