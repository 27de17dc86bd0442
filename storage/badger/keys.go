package badger

// Key prefixes for different data types
const (
	cacheEntryPrefix = "qcache:"
	cacheEntrySeq    = "qcacheseq"
	historyPrefix    = "qhist:"
)

// makeCacheEntryKey generates a key for a cache entry by cache key.
// Format: prefix:cacheKey
func makeCacheEntryKey(cacheKey string) []byte {
	return []byte(cacheEntryPrefix + cacheKey)
}

// makeHistoryKey generates a key for a session's history list.
// Format: prefix:sessionID
func makeHistoryKey(sessionID string) []byte {
	return []byte(historyPrefix + sessionID)
}
