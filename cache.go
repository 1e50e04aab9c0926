package tagcache

import "math/bits"

// ═══════════════════════════════════════════════════════════════════════════
// CacheConfig
// ═══════════════════════════════════════════════════════════════════════════

// CacheConfig parameterizes a TagCache.
type CacheConfig struct {
	Size            int  // total cache size, bytes
	Assoc           int  // associativity (ways per set)
	LineSize        int  // cached-line size, bits
	SpatialTemporal bool // track which 64-byte sub-region of a line was touched
}

// DefaultCacheConfig returns the tag cache's default configuration:
// 64KiB, 4-way, 1024-bit lines, spatial/temporal tracking off.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Size:     1 << 16,
		Assoc:    4,
		LineSize: 1024,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// TagCache
// ═══════════════════════════════════════════════════════════════════════════

// TagCache is a set-associative cache of table-line records fronting every
// level of a TagMemory's table hierarchy. A single table line, identified by
// (level, lineNumber), may be resident in exactly one of its set's ways at a
// time.
//
// Replacement is a trivial global round-robin counter shared across every
// set (not per-set LRU): nextWay increments on every fill and the victim way
// in whichever set is being filled is nextWay mod Assoc. Any more realistic
// policy would change the counter trajectories this model is pinned to.
type TagCache struct {
	cfg      CacheConfig
	waylines int
	ways     [][]CacheRecord // len(ways) == waylines, len(ways[i]) == Assoc
	nextWay  uint64

	CacheHits       uint64
	CacheMisses     uint64
	CacheWritebacks uint64
	SpatialHits     map[int]uint64
	TemporalHits    map[int]uint64
}

// NewTagCache builds an empty TagCache from cfg.
func NewTagCache(cfg CacheConfig) *TagCache {
	waysize := cfg.Size / cfg.Assoc
	waylines := waysize / (cfg.LineSize / 8)

	ways := make([][]CacheRecord, waylines)
	for i := range ways {
		ways[i] = make([]CacheRecord, cfg.Assoc)
	}

	return &TagCache{
		cfg:          cfg,
		waylines:     waylines,
		ways:         ways,
		SpatialHits:  make(map[int]uint64),
		TemporalHits: make(map[int]uint64),
	}
}

// log2 returns floor(log2(x)) for x > 0.
func log2(x int) uint {
	return uint(bits.Len(uint(x)) - 1)
}

// lineNumber maps a level's bit address onto the coarser granularity of a
// cached line: many adjacent bit addresses share one cache line.
func (c *TagCache) lineNumber(bitAddr uint64) uint64 {
	return bitAddr >> log2(c.cfg.LineSize)
}

// lookup scans every way of set for a valid record matching (lvl, line),
// returning nil on a miss.
func (c *TagCache) lookup(set, lvl int, line uint64) *CacheRecord {
	for w := range c.ways[set] {
		r := &c.ways[set][w]
		if r.Valid && r.TableAddr.Level == lvl && r.TableAddr.Line == line {
			return r
		}
	}
	return nil
}

// fill installs a fresh record for (lvl, line) into set, evicting whatever
// way the round-robin counter currently points at. A fill always succeeds;
// there is no capacity failure.
func (c *TagCache) fill(set, lvl int, line uint64) *CacheRecord {
	c.nextWay++
	way := int(c.nextWay % uint64(c.cfg.Assoc))

	victim := &c.ways[set][way]
	if victim.Dirty {
		c.CacheWritebacks++
	}

	*victim = CacheRecord{
		Valid:            true,
		TableAddr:        TableAddr{Level: lvl, Line: line},
		dataLineAccessed: make(map[uint64]struct{}),
	}
	return victim
}

// access is the top-level tag-cache access method. It never returns a value
// to the caller; all observable effects are counter updates and the
// resident record's dirty/validity state.
//
// create signals that the caller's optimisation (empty-leaf create) is
// bringing this line into existence without a memory read: the fill still
// happens, but it is not counted as a miss.
func (c *TagCache) access(lvl int, bitAddr uint64, write bool, dataLineAddr uint64, countAccess bool, create bool) {
	line := c.lineNumber(bitAddr)
	set := int(line % uint64(c.waylines))

	rec := c.lookup(set, lvl, line)
	if rec == nil {
		rec = c.fill(set, lvl, line)
		if !create {
			c.CacheMisses++
		}
	} else {
		c.CacheHits++
		if countAccess && c.cfg.SpatialTemporal {
			region := dataLineAddr >> 6
			if _, seen := rec.dataLineAccessed[region]; seen {
				c.TemporalHits[lvl]++
			} else {
				c.SpatialHits[lvl]++
				rec.dataLineAccessed[region] = struct{}{}
			}
		}
	}

	if write {
		rec.Dirty = true
	}
}

// clean clears the dirty bit of the line at (lvl, bitAddr) if it is
// currently resident, without accounting a writeback. It is a no-op if the
// line is not resident. Used by the empty-leaf optimisation to discard a
// line that has just become all-zero without forcing it back to memory.
func (c *TagCache) clean(lvl int, bitAddr uint64) {
	line := c.lineNumber(bitAddr)
	set := int(line % uint64(c.waylines))
	if rec := c.lookup(set, lvl, line); rec != nil {
		rec.Dirty = false
	}
}
