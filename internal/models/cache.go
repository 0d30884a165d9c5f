package models

import (
	"fmt"
	"time"
)

// CacheTTL is the lifetime of a resolved-stream cache entry. Shorter
// than the session TTL on purpose: the cache only short-circuits the
// network pipeline, it is not authoritative for playback.
const CacheTTL = 2 * time.Hour

// ResolvedStreamCacheEntry is one cached resolution, unique per
// (content key, origin, quality). Upserted on every successful
// resolution, including ones re-derived from a fresh candidate loop.
type ResolvedStreamCacheEntry struct {
	Key string `boltholdKey:"Key"` // contentKey|origin|quality

	ContentKey string `boltholdIndex:"ContentKey"`
	Origin     StreamOrigin
	Quality    Quality

	Stream    Stream
	StreamURL string
	InfoHash  string
	FileName  string

	ResolvedAt time.Time
	ExpiresAt  time.Time `boltholdIndex:"ExpiresAt"`
	LastUsedAt time.Time

	UseCount       int
	SuccessCount   int
	FailureCount   int
	AverageLatency time.Duration
}

// CacheKey builds the unique store key for a cache entry
func CacheKey(contentKey string, origin StreamOrigin, quality Quality) string {
	return fmt.Sprintf("%s|%s|%s", contentKey, origin, quality)
}

// Expired reports whether the entry has passed its expiry at now
func (e *ResolvedStreamCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
