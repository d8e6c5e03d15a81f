// Package cache is a process-local TTL cache used to avoid redundant
// backend fetches. It is a latency optimization only, never a source of
// truth: an expired entry is indistinguishable from a missing one.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTL classes. Read-model entries use Short so staleness is bounded to
// tens of seconds between events.
const (
	TTLShort  = 30 * time.Second
	TTLMedium = 5 * time.Minute
)

// Cache key builders, one per read-model collection.
func PendingKey(userID string) string { return "pending:" + userID }
func AuditKey(userID string) string   { return "audit:" + userID }
func ActiveKey(userID string) string  { return "active:" + userID }

// Store is a key→value store with per-entry TTL and explicit invalidation.
type Store struct {
	c *gocache.Cache
}

// New creates a Store. defaultTTL applies when Set is called with ttl 0.
func New(defaultTTL time.Duration) *Store {
	return &Store{c: gocache.New(defaultTTL, time.Minute)}
}

// Get returns the stored value and true iff the entry exists and has not
// expired. Expiry is lazy; no sweep is required for correctness.
func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

// Set stores a value under key with the given TTL.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.c.Set(key, value, ttl)
}

// Invalidate removes an entry. Removing a missing key is a no-op.
func (s *Store) Invalidate(key string) {
	s.c.Delete(key)
}
