// ═══════════════════════════════════════════════════════════════════════════
// TAGCACHE: Hierarchical Tag-Cache Simulator Core
// ═══════════════════════════════════════════════════════════════════════════
//
// Package tagcache models the memory-tagging subsystem of a CHERI-style
// machine: a multi-level, zero-eliding tag table backed by main memory, and
// a small set-associative cache that fronts every level of that table.
//
// Two types carry the whole model:
//
//   - TagCache  — the set-associative cache of table-line records. Every
//     table level shares the same cache; lines are identified by
//     (level, lineNumber). Replacement is a single global round-robin
//     counter shared across every set — deliberately not LRU.
//
//   - TagMemory — owns the table hierarchy (one []byte per level, one byte
//     per bit) and routes read/write requests through it, consulting the
//     TagCache at each level visited and performing hierarchical
//     zero-elision bookkeeping on writes.
//
// The model is strictly synchronous: PutReq returns only once every mutation
// for that request has completed, and nothing here takes a lock or blocks on
// I/O. Sweeping several configurations concurrently means constructing one
// independent *TagMemory per configuration (see package sweep) — state is
// never safe to share across goroutines.
//
// This package is deliberately silent on trace formats, CLI flags, and
// batch orchestration; those live in the trace, cmd/tagsim, and sweep
// packages respectively and talk to TagMemory only through PutReq/Report.
package tagcache
