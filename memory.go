package tagcache

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// MemoryConfig / Level
// ═══════════════════════════════════════════════════════════════════════════

// MemoryConfig parameterizes a TagMemory.
type MemoryConfig struct {
	Cache CacheConfig

	// TableStruct is [0, gf1, gf2, ...]: index 0 is an unused sentinel,
	// index k>=1 is the grouping factor between level k-1 and level k.
	// TableStruct[1] must be >= 8 whenever len(TableStruct) > 1.
	TableStruct []int

	MemStart uint64 // base byte address of the simulated window
	MemSize  uint64 // window size in bytes

	EmptyLeafOpt   bool // skip memory read/writeback for lines created/destroyed empty
	NonDirtyWrites bool // keep a line clean when the written value equals the old one

	// Logger receives the single diagnostic this model ever emits
	// (out-of-range access). Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultMemoryConfig returns the tag memory's default configuration: a
// two-level table with grouping factor 256, 2^31 byte memory start, 2^29
// byte window, and the default TagCache.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Cache:       DefaultCacheConfig(),
		TableStruct: []int{0, 256},
		MemStart:    1 << 31,
		MemSize:     1 << 29,
	}
}

// Level is one level of the tag-table hierarchy: a flat array of one-byte
// cells (each holding a single bit) plus the right-shift that maps a byte
// address in the simulated window onto a bit-index into storage.
//
// Storage is kept one byte per bit rather than packed into a real bitset:
// the testable properties this model must satisfy name concrete per-cell
// values, and a []byte of 0/1 makes those checks direct rather than routed
// through bit-twiddling in every test. See DESIGN.md.
type Level struct {
	storage   []byte
	addrShift uint
}

// ═══════════════════════════════════════════════════════════════════════════
// TagMemory
// ═══════════════════════════════════════════════════════════════════════════

// TagMemory owns a tag-table hierarchy and the TagCache fronting it. It is
// the sole entry point for tag read/write requests via PutReq.
type TagMemory struct {
	cfg    MemoryConfig
	cache  *TagCache
	levels []Level // levels[0] is the leaf, levels[len-1] is the root
	logger *slog.Logger

	totalMemTransactions uint64
	tableHits            []uint64 // len == len(levels)
	reportIndex          uint64
}

// NewTagMemory builds a TagMemory from cfg. It panics if
// len(cfg.TableStruct) > 1 and cfg.TableStruct[1] < 8: grouping factors
// below 8 are not guaranteed to be garbage collected by the group-collapse
// walk (see PutReq), so this is treated as a programmer error rather than a
// runtime condition.
func NewTagMemory(cfg MemoryConfig) *TagMemory {
	if len(cfg.TableStruct) > 1 && cfg.TableStruct[1] < 8 {
		panic("tagcache: leaf grouping factors below 8 are not guaranteed to be garbage collected")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	levels := make([]Level, len(cfg.TableStruct))
	levels[0] = Level{
		storage:   make([]byte, cfg.MemSize/8),
		addrShift: 3,
	}
	for lvl := 1; lvl < len(levels); lvl++ {
		gf := cfg.TableStruct[lvl]
		levels[lvl] = Level{
			storage:   make([]byte, len(levels[lvl-1].storage)/gf),
			addrShift: levels[lvl-1].addrShift + log2(gf),
		}
	}

	return &TagMemory{
		cfg:       cfg,
		cache:     NewTagCache(cfg.Cache),
		levels:    levels,
		logger:    logger,
		tableHits: make([]uint64, len(levels)),
	}
}

// lookupAddrs returns, for a window-relative address addr, the bit-index
// into each level's storage: addrs[lvl] = addr >> levels[lvl].addrShift.
func (m *TagMemory) lookupAddrs(addr uint64) []uint64 {
	addrs := make([]uint64, len(m.levels))
	for lvl, level := range m.levels {
		addrs[lvl] = addr >> level.addrShift
	}
	return addrs
}

// PutReq routes a single tag-memory transaction through the table
// hierarchy, consulting the TagCache at each level visited. It returns only
// once every mutation for this request is complete.
func (m *TagMemory) PutReq(req Request) {
	m.totalMemTransactions++

	if req.Addr < m.cfg.MemStart || req.Addr-m.cfg.MemStart >= m.cfg.MemSize {
		m.logger.Warn("memory out-of-range access",
			"addr", req.Addr, "memstart", m.cfg.MemStart, "memsize", m.cfg.MemSize)
		return
	}

	addr := req.Addr - m.cfg.MemStart
	addrs := m.lookupAddrs(addr)
	responseLevel := len(m.levels) - 1

	if req.Write {
		responseLevel = m.putWrite(addr, addrs, req.Tags, responseLevel)
	} else {
		responseLevel = m.putRead(addr, addrs, responseLevel)
	}

	m.tableHits[responseLevel]++
}

// putWrite implements the write path of SPEC_FULL §4.2: it descends the
// table from root to leaf, short-circuiting as soon as it finds it is
// writing zeros onto an already-zero subtree, then performs the leaf write
// and, if the payload was all-zero and the leaf actually changed, walks the
// hierarchy back up collapsing any subtree that became entirely zero.
func (m *TagMemory) putWrite(addr uint64, addrs []uint64, tags []byte, responseLevel int) int {
	zeroTags := allZero(tags)
	keepGoing := true
	createNext := false

	for lvl := len(m.levels) - 1; lvl >= 1; lvl-- {
		createMe := createNext
		createNext = false
		if !keepGoing {
			continue
		}

		bitAddr := addrs[lvl]
		table := m.levels[lvl].storage

		if zeroTags && table[bitAddr] == 0 {
			m.cache.access(lvl, bitAddr, false, addr, true, createMe)
			keepGoing = false
			continue
		}

		doCacheUpdate := table[bitAddr] != 1
		if doCacheUpdate && m.cfg.EmptyLeafOpt {
			createNext = true
		}
		m.cache.access(lvl, bitAddr, doCacheUpdate, addr, false, createMe)
		table[bitAddr] = 1
		responseLevel--
	}

	leafChanged := false
	if keepGoing {
		createMe := createNext
		bitAddr := addrs[0]
		leaf := m.levels[0].storage

		doCacheUpdate := !m.cfg.NonDirtyWrites
		window := leaf[bitAddr : bitAddr+uint64(len(tags))]
		if !bytes.Equal(window, tags) {
			doCacheUpdate = true
			copy(window, tags)
		}
		m.cache.access(0, bitAddr, doCacheUpdate, addr, true, createMe)
		leafChanged = doCacheUpdate
	}

	if zeroTags && leafChanged {
		m.collapseZeroGroups(addrs)
	}

	return responseLevel
}

// collapseZeroGroups walks the hierarchy from leaf to root clearing any
// summary bit whose entire child group has become zero. The grouping
// factors are TableStruct[1:] with a sentinel 1 appended for the root
// iteration: the root is visited (so the level below it can clear it) but,
// because its own grouping factor is 1, it is never itself collapsed.
func (m *TagMemory) collapseZeroGroups(addrs []uint64) {
	clearNext := false
	for lvl := 0; lvl < len(m.levels); lvl++ {
		gf := 1
		if lvl+1 < len(m.cfg.TableStruct) {
			gf = m.cfg.TableStruct[lvl+1]
		}

		table := m.levels[lvl].storage
		entAddr := addrs[lvl]

		if clearNext {
			table[entAddr] = 0
		}

		groupAddr := entAddr - (entAddr % uint64(gf))
		if gf != 1 && allZero(table[groupAddr:groupAddr+uint64(gf)]) {
			clearNext = true
			if m.cfg.EmptyLeafOpt {
				m.cache.clean(lvl, entAddr)
			}
		} else {
			clearNext = false
		}
	}
}

// putRead implements the read path of SPEC_FULL §4.2: descend from root to
// leaf, terminating as soon as a zero summary bit or the leaf is reached.
func (m *TagMemory) putRead(addr uint64, addrs []uint64, responseLevel int) int {
	keepGoing := true
	for lvl := len(m.levels) - 1; lvl >= 0; lvl-- {
		if !keepGoing {
			continue
		}

		bitAddr := addrs[lvl]
		table := m.levels[lvl].storage

		if table[bitAddr] == 0 || lvl == 0 {
			keepGoing = false
		} else {
			responseLevel--
		}
		m.cache.access(lvl, bitAddr, false, addr, !keepGoing, false)
	}
	return responseLevel
}

// Report renders the tableHits line followed by the summary line described
// in SPEC_FULL §6: a monotonically-increasing report index, cumulative hit
// rate, total accesses, hits, per-level spatial/temporal hit pairs, misses,
// writebacks, and total memory transactions. Unlike the original, it always
// returns a well-formed line (hit rate is 0 when there have been no cache
// lookups yet) rather than a sentinel for the zero-hit case — see DESIGN.md.
func (m *TagMemory) Report() string {
	m.reportIndex++
	c := m.cache

	var hitRate float64
	if lookups := c.CacheHits + c.CacheMisses; lookups > 0 {
		hitRate = float64(c.CacheHits) / float64(lookups)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "tableHits: %v\n", m.tableHits)
	fmt.Fprintf(&b, "%d: HitRate: %f, totalAccesses: %d, hits: %d",
		m.reportIndex, hitRate, c.CacheMisses+c.CacheWritebacks, c.CacheHits)
	for lvl := 0; lvl < len(m.levels); lvl++ {
		fmt.Fprintf(&b, ", spatialHits[%d]: %d, temporalHits[%d]: %d",
			lvl, c.SpatialHits[lvl], lvl, c.TemporalHits[lvl])
	}
	fmt.Fprintf(&b, ", misses: %d, writebacks: %d, totalMemTransactions: %d",
		c.CacheMisses, c.CacheWritebacks, m.totalMemTransactions)

	return b.String()
}

// TableHits returns a copy of the per-level response-level histogram.
func (m *TagMemory) TableHits() []uint64 {
	out := make([]uint64, len(m.tableHits))
	copy(out, m.tableHits)
	return out
}

// TotalMemTransactions returns the number of requests PutReq has processed,
// including out-of-range ones.
func (m *TagMemory) TotalMemTransactions() uint64 {
	return m.totalMemTransactions
}

// Levels returns the number of levels in the table hierarchy.
func (m *TagMemory) Levels() int {
	return len(m.levels)
}

// TableCell returns the raw cell value at (level, bitIndex), for tests and
// tooling that need to inspect table state directly.
func (m *TagMemory) TableCell(level int, bitIndex uint64) byte {
	return m.levels[level].storage[bitIndex]
}
