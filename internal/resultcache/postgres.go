package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Schema is the SQL DDL for the voice_result_cache table.
const Schema = `
CREATE TABLE IF NOT EXISTS voice_result_cache (
    hash       TEXT PRIMARY KEY,
    candidate  JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_voice_result_cache_created ON voice_result_cache(created_at);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] that survives restarts and is shared between
// replicas. Expired rows are ignored on read and removed by [PostgresStore.Prune].
type PostgresStore struct {
	db  DB
	ttl time.Duration
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore]. A ttl ≤ 0 uses [DefaultTTL].
func NewPostgresStore(db DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// Migrate creates the cache table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("resultcache: migrate: %w", err)
	}
	return nil
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, hash string) (voice.CacheEntry, bool, error) {
	const query = `
		SELECT candidate, created_at
		FROM voice_result_cache
		WHERE hash = $1 AND created_at > $2`

	var (
		raw       []byte
		createdAt time.Time
	)
	err := s.db.QueryRow(ctx, query, hash, s.cutoff()).Scan(&raw, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return voice.CacheEntry{}, false, nil
	}
	if err != nil {
		return voice.CacheEntry{}, false, fmt.Errorf("resultcache: get %q: %w", hash, err)
	}
	var c voice.ScoredCandidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return voice.CacheEntry{}, false, fmt.Errorf("resultcache: unmarshal %q: %w", hash, err)
	}
	return voice.CacheEntry{Hash: hash, Candidate: c, CreatedAt: createdAt}, true, nil
}

// Set implements [Store].
func (s *PostgresStore) Set(ctx context.Context, hash string, c voice.ScoredCandidate) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("resultcache: marshal %q: %w", hash, err)
	}
	const query = `
		INSERT INTO voice_result_cache (hash, candidate, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO UPDATE SET
			candidate = EXCLUDED.candidate,
			created_at = EXCLUDED.created_at`

	if _, err := s.db.Exec(ctx, query, hash, raw, s.now().UTC()); err != nil {
		return fmt.Errorf("resultcache: set %q: %w", hash, err)
	}
	return nil
}

// Prune deletes expired rows and returns how many were removed.
func (s *PostgresStore) Prune(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM voice_result_cache WHERE created_at <= $1`, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("resultcache: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) cutoff() time.Time {
	return s.now().UTC().Add(-s.ttl)
}
