package tagcache

// TableAddr identifies which table-line a CacheRecord caches: a level index
// and the line number within that level's storage.
type TableAddr struct {
	Level int
	Line  uint64
}

// CacheRecord is one resident line in the TagCache. It lives from the fill
// that created it until the round-robin replacement policy evicts it, at
// which point the containing set's slot is overwritten in place.
type CacheRecord struct {
	Valid     bool
	Dirty     bool
	TableAddr TableAddr

	// dataLineAccessed is the set of 64-byte sub-region indices (addr>>6)
	// observed while this record has been resident. Only populated when
	// the owning cache's SpatialTemporal option is enabled.
	dataLineAccessed map[uint64]struct{}
}
