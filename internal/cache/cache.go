package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the storage behind the fetch capability: fetched documents
// are keyed by URL hash and expire on TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key for a URL
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "deepresearch:v1:" + hex.EncodeToString(sum[:])
}
