// Package resultcache stores the top candidate of each resolved description,
// keyed by the description hash.
//
// A hit lets the designer skip matching and generation entirely. Every store
// is bounded: entries expire after a TTL and the in-memory store additionally
// evicts the least recently used entry once full. Concurrent misses for the
// same hash may both resolve and both write; the last write wins.
package resultcache

import (
	"context"
	"time"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Defaults for bounded stores.
const (
	DefaultCapacity = 1024
	DefaultTTL      = 24 * time.Hour
)

// Store is a content-addressed cache of resolved candidates.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for hash. ok is false on a miss or when the
	// entry has expired.
	Get(ctx context.Context, hash string) (entry voice.CacheEntry, ok bool, err error)

	// Set stores c under hash, replacing any previous entry.
	Set(ctx context.Context, hash string, c voice.ScoredCandidate) error
}
