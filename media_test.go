package retrocore

import "testing"

func buildINES(prgBanks, chrBanks byte, mapperLow, mapperHigh byte) []byte {
	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = prgBanks
	header[5] = chrBanks
	header[6] = mapperLow << 4
	header[7] = mapperHigh & 0xF0
	body := make([]byte, int(prgBanks)*16384+int(chrBanks)*8192)
	return append(header, body...)
}

func TestParseINES_MissingHeaderRejected(t *testing.T) {
	if _, _, _, _, err := parseINES([]byte{0, 0, 0, 0}); err == nil {
		t.Fatal("expected an error for a too-short/missing iNES header")
	}
}

func TestParseINES_SplitsPRGAndCHR(t *testing.T) {
	data := buildINES(2, 1, 0, 0)
	data[16] = 0xAA  // first PRG byte
	data[16+2*16384] = 0xBB // first CHR byte
	prg, chr, mapperID, _, err := parseINES(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prg) != 2*16384 {
		t.Fatalf("len(prg) = %d, want %d", len(prg), 2*16384)
	}
	if len(chr) != 8192 {
		t.Fatalf("len(chr) = %d, want %d", len(chr), 8192)
	}
	if prg[0] != 0xAA {
		t.Fatalf("prg[0] = %#02x, want 0xAA", prg[0])
	}
	if chr[0] != 0xBB {
		t.Fatalf("chr[0] = %#02x, want 0xBB", chr[0])
	}
	if mapperID != 0 {
		t.Fatalf("mapperID = %d, want 0 (NROM)", mapperID)
	}
}

func TestParseINES_TruncatedPRGRejected(t *testing.T) {
	data := buildINES(2, 0, 0, 0)
	data = data[:20] // far short of the declared 2*16KB PRG size
	if _, _, _, _, err := parseINES(data); err == nil {
		t.Fatal("expected an error when PRG ROM size exceeds the image")
	}
}

func TestNewMapperFor_KnownMappers(t *testing.T) {
	prg := make([]byte, 0x4000)
	for _, id := range []int{0, 1, 2, 9} {
		if _, err := newMapperFor(id, prg, nil); err != nil {
			t.Fatalf("mapper %d: unexpected error %v", id, err)
		}
	}
}

func TestParseDiskImage_RejectsEmpty(t *testing.T) {
	if _, err := parseDiskImage(nil); err == nil {
		t.Fatal("expected an error for an empty disk image")
	}
	img, err := parseDiskImage([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(img.Raw) != 3 {
		t.Fatalf("len(Raw) = %d, want 3", len(img.Raw))
	}
}

// parseTapeImage's header check validates the first TAP block's
// little-endian length prefix against the image size.
func TestParseTapeImage_HeaderValidation(t *testing.T) {
	good := []byte{0x03, 0x00, 0x01, 0x02, 0x03} // block of length 3, present in full
	if _, err := parseTapeImage(good); err != nil {
		t.Fatalf("unexpected error for a well-formed TAP header: %v", err)
	}

	tooShort := []byte{0xFF, 0x00, 0x01} // claims a 255-byte block but only 1 byte follows
	if _, err := parseTapeImage(tooShort); err == nil {
		t.Fatal("expected an error for a block length exceeding the image")
	}

	zeroLen := []byte{0x00, 0x00, 0x01, 0x02}
	if _, err := parseTapeImage(zeroLen); err == nil {
		t.Fatal("expected an error for a zero-length first block")
	}
}
