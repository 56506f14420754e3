package exemptions

import "time"

// RulesCache caches the full catalog rule list so repeated analyses do not
// hit the backing store. Implementations must be safe for concurrent use.
type RulesCache interface {
	// Get retrieves cached rules, returns nil on cache miss or expiry
	Get() []*Rule

	// Set stores rules in cache
	Set(rules []*Rule)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for catalog caching: no TTL,
// invalidation only on catalog mutation.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
