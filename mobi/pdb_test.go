package mobi

import (
	"errors"
	"testing"
)

func TestParsePDBMinimal(t *testing.T) {
	data := buildPDB("test-book", [][]byte{
		[]byte("record zero payload"),
		[]byte("record one payload, a bit longer"),
	})

	header, records, err := ParsePDB(data)
	if err != nil {
		t.Fatalf("ParsePDB: %v", err)
	}
	if header.Name != "test-book" {
		t.Errorf("name = %q", header.Name)
	}
	if header.Type != "BOOK" || header.Creator != "MOBI" {
		t.Errorf("type/creator = %q/%q", header.Type, header.Creator)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if string(records[0].Data) != "record zero payload" {
		t.Errorf("record 0 = %q", records[0].Data)
	}
	if string(records[1].Data) != "record one payload, a bit longer" {
		t.Errorf("record 1 = %q", records[1].Data)
	}
	if records[0].UID != 1 || records[1].UID != 2 {
		t.Errorf("uids = %d, %d", records[0].UID, records[1].UID)
	}
}

func TestParsePDBWrongCreator(t *testing.T) {
	data := buildPDB("x", [][]byte{[]byte("a")})
	// Corrupt the creator field (bytes 64..68, just before uniqueIDSeed).
	data[64] = 'X'
	if _, _, err := ParsePDB(data); !errors.Is(err, ErrFileUnsupported) {
		t.Fatalf("got %v, want ErrFileUnsupported", err)
	}
}

func TestParsePDBTooShort(t *testing.T) {
	if _, _, err := ParsePDB([]byte{1, 2, 3}); !errors.Is(err, ErrBufferEnd) {
		t.Fatalf("got %v, want ErrBufferEnd", err)
	}
}

func TestPalmTimeEpochDisambiguation(t *testing.T) {
	// Bit 31 clear: treated as Unix seconds directly.
	if got := palmTime(1000); got != 1000 {
		t.Errorf("unix-epoch case: got %d, want 1000", got)
	}
	// Bit 31 set: Mac/Palm-epoch seconds, offset by palmEpochOffset.
	// palmEpochOffset+1e9 exceeds 1<<31, so bit 31 is set naturally.
	macVal := uint32(palmEpochOffset + 1000000000)
	if got := palmTime(macVal); got != 1000000000 {
		t.Errorf("mac-epoch case: got %d, want 1000000000", got)
	}
}
