package resultcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// MemoryStore is an in-process [Store] backed by an expirable LRU.
type MemoryStore struct {
	lru *expirable.LRU[string, voice.CacheEntry]
	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a [MemoryStore].
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	capacity int
	ttl      time.Duration
}

// WithCapacity bounds the number of entries. Values ≤ 0 use [DefaultCapacity].
func WithCapacity(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL sets how long an entry stays valid. Values ≤ 0 use [DefaultTTL].
func WithTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// NewMemoryStore creates a [MemoryStore].
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := memoryConfig{capacity: DefaultCapacity, ttl: DefaultTTL}
	for _, o := range opts {
		o(&cfg)
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, voice.CacheEntry](cfg.capacity, nil, cfg.ttl),
		now: time.Now,
	}
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, hash string) (voice.CacheEntry, bool, error) {
	e, ok := s.lru.Get(hash)
	return e, ok, nil
}

// Set implements [Store].
func (s *MemoryStore) Set(_ context.Context, hash string, c voice.ScoredCandidate) error {
	s.lru.Add(hash, voice.CacheEntry{Hash: hash, Candidate: c, CreatedAt: s.now().UTC()})
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int { return s.lru.Len() }
