package trace

import "testing"

func TestParseRecord_Write(t *testing.T) {
	// WHAT: a well-formed write row.
	// WHY: op/addr/size/bits must all land in the right Record fields, with
	// the address parsed as hex.
	rec, err := ParseRecord([]string{"W", "1f", "64", "11110000"})
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if !rec.Write {
		t.Error("Write = false, want true")
	}
	if rec.Addr != 0x1f {
		t.Errorf("Addr = %#x, want 0x1f", rec.Addr)
	}
	if rec.Size != 64 {
		t.Errorf("Size = %d, want 64", rec.Size)
	}
	if rec.Bits != "11110000" {
		t.Errorf("Bits = %q, want %q", rec.Bits, "11110000")
	}
}

func TestParseRecord_Read_BitsOptional(t *testing.T) {
	// WHAT: a read row with no bits field.
	// WHY: reads never carry a tag payload, so ParseRecord must not require
	// a fourth field for them.
	rec, err := ParseRecord([]string{"R", "20", "64"})
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if rec.Write {
		t.Error("Write = true, want false")
	}
}

func TestParseRecord_RejectsUnknownOp(t *testing.T) {
	// WHAT: an op field that is neither "W" nor "R".
	// WHY: malformed rows must be reported, not silently misinterpreted.
	if _, err := ParseRecord([]string{"X", "20", "64"}); err == nil {
		t.Error("expected an error for an unknown op")
	}
}

func TestParseRecord_RejectsMissingBitsOnWrite(t *testing.T) {
	// WHAT: a write row with no fourth field.
	// WHY: a write without a tag payload is malformed and must be rejected
	// rather than defaulting to all-zero.
	if _, err := ParseRecord([]string{"W", "20", "64"}); err == nil {
		t.Error("expected an error for a write row missing its bits field")
	}
}

func TestTagsFromBits(t *testing.T) {
	// WHAT: an ASCII bit string with only '0' and '1' characters.
	// WHY: each character becomes exactly one byte, 0 or 1.
	tags := TagsFromBits("1001")
	want := []byte{1, 0, 0, 1}
	if len(tags) != len(want) {
		t.Fatalf("len(tags) = %d, want %d", len(tags), len(want))
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %d, want %d", i, tags[i], want[i])
		}
	}
}

func TestToRequest_ReadHasNoTags(t *testing.T) {
	// WHAT: ToRequest on a parsed read Record.
	// WHY: reads must not synthesize a tag payload from an empty Bits field.
	req := ToRequest(Record{Write: false, Addr: 10, Size: 64})
	if req.Tags != nil {
		t.Errorf("Tags = %v, want nil for a read", req.Tags)
	}
}
