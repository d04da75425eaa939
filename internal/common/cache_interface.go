package common

import (
	"fmt"
	"time"

	"fraternitybase/registry/internal/constants"
)

// CacheInterface defines the contract for cache implementations
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get retrieves a value from cache by key
	// Returns the value and true if found, nil and false otherwise
	Get(key string) (interface{}, bool)

	// Delete removes a value from cache by key
	Delete(key string)

	// GetOrSet retrieves a value from cache, or loads it using the loader function if not found
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}

// GetString reads a cached string. Values that round-tripped through Redis
// come back as decoded JSON, which for strings is still a string.
func GetString(cache CacheInterface, key string) (string, bool) {
	if cache == nil {
		return "", false
	}
	val, found := cache.Get(key)
	if !found {
		return "", false
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ChapterStatsKey is the cache key of one chapter's statistics snapshot.
// Imports delete it once their batch is finalized.
func ChapterStatsKey(organization, chapter string) string {
	return fmt.Sprintf("%s%s:%s", constants.CachePrefixStats, organization, chapter)
}
