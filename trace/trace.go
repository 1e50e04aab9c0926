// Package trace turns CSV trace rows — the external wire format this model
// was built to replay — into tagcache.Request values. It never touches a
// file or a csv.Reader directly: callers (cmd/tagsim, tests) hand it
// already-split fields, which keeps it exercisable without fixtures on
// disk.
package trace

import (
	"fmt"
	"strconv"

	"github.com/CTSRD-CHERI/tagcache"
)

// Record is one parsed trace row: op, addr_hex, size, and (for writes) an
// ASCII '0'/'1' bit string.
type Record struct {
	Write bool
	Addr  uint64
	Size  int
	Bits  string
}

// ParseRecord parses a single CSV row of the form "op,addr_hex,size[,bits]".
// It does not filter by size — forwarding only size==64 rows to the core is
// the replay loop's decision, not the parser's (mirroring the original
// simulateTags.py, where the CSV reader has no notion of the 64-byte rule).
func ParseRecord(fields []string) (Record, error) {
	if len(fields) < 3 {
		return Record{}, fmt.Errorf("trace: row has %d fields, want at least 3", len(fields))
	}

	op := fields[0]
	if op != "W" && op != "R" {
		return Record{}, fmt.Errorf("trace: unknown op %q", op)
	}

	addr, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil {
		return Record{}, fmt.Errorf("trace: bad hex address %q: %w", fields[1], err)
	}

	size, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("trace: bad size %q: %w", fields[2], err)
	}

	rec := Record{Write: op == "W", Addr: addr, Size: size}
	if rec.Write {
		if len(fields) < 4 {
			return Record{}, fmt.Errorf("trace: write row missing bits field")
		}
		rec.Bits = fields[3]
	}
	return rec, nil
}

// TagsFromBits turns an ASCII '0'/'1' string into the []byte tag vector
// tagcache.Request.Tags expects, one byte per character: non-'0' characters
// become 1, mirroring the original str2ba helper's tolerant parsing.
func TagsFromBits(bits string) []byte {
	tags := make([]byte, len(bits))
	for i, c := range []byte(bits) {
		if c != '0' {
			tags[i] = 1
		}
	}
	return tags
}

// ToRequest builds a tagcache.Request from a parsed Record.
func ToRequest(r Record) tagcache.Request {
	req := tagcache.Request{Write: r.Write, Addr: r.Addr}
	if r.Write {
		req.Tags = TagsFromBits(r.Bits)
	}
	return req
}
