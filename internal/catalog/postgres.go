package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Schema is the SQL DDL for the catalog_voices table. Execute it via
// [PostgresSource.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_voices (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    gender       TEXT NOT NULL DEFAULT 'unspecified',
    accent       TEXT NOT NULL DEFAULT '',
    age_group    TEXT NOT NULL DEFAULT 'unspecified',
    tags         JSONB NOT NULL DEFAULT '[]',
    tone         JSONB NOT NULL DEFAULT '[]',
    quality_tier TEXT NOT NULL DEFAULT 'standard',
    provider_ref TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_catalog_voices_gender ON catalog_voices(gender);
`

// DB is the database interface used by [PostgresSource]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSource is a [Source] backed by the catalog_voices table.
type PostgresSource struct {
	db DB
}

var _ Source = (*PostgresSource)(nil)

// NewPostgresSource creates a [PostgresSource]. The caller is responsible for
// calling [PostgresSource.Migrate] before the first listing.
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Name implements [Source].
func (s *PostgresSource) Name() string { return "postgres" }

// Migrate creates the catalog_voices table if it does not exist.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a catalog voice.
func (s *PostgresSource) Upsert(ctx context.Context, v voice.CatalogVoice) error {
	if v.ID == "" {
		return fmt.Errorf("catalog: upsert: id is required")
	}
	v = normalizeVoice(v)

	tagsJSON, err := json.Marshal(emptySlice(v.Tags))
	if err != nil {
		return fmt.Errorf("catalog: marshal tags: %w", err)
	}
	toneJSON, err := json.Marshal(emptySlice(v.Tone))
	if err != nil {
		return fmt.Errorf("catalog: marshal tone: %w", err)
	}

	const query = `
		INSERT INTO catalog_voices (
			id, name, gender, accent, age_group, tags, tone, quality_tier, provider_ref
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			accent = EXCLUDED.accent,
			age_group = EXCLUDED.age_group,
			tags = EXCLUDED.tags,
			tone = EXCLUDED.tone,
			quality_tier = EXCLUDED.quality_tier,
			provider_ref = EXCLUDED.provider_ref,
			updated_at = now()`

	_, err = s.db.Exec(ctx, query,
		v.ID, v.Name, string(v.Gender), v.Accent, string(v.AgeGroup),
		tagsJSON, toneJSON, string(v.QualityTier), v.ProviderRef,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert %q: %w", v.ID, err)
	}
	return nil
}

// Import upserts every voice in rf and returns how many were written.
// An error aborts the import and returns the count so far.
func (s *PostgresSource) Import(ctx context.Context, rf *RosterFile) (int, error) {
	for i, v := range rf.Voices {
		if err := s.Upsert(ctx, v); err != nil {
			return i, err
		}
	}
	return len(rf.Voices), nil
}

// ListVoices implements [Source]. Voices are returned ordered by id so the
// merged roster is stable across restarts.
func (s *PostgresSource) ListVoices(ctx context.Context) ([]voice.CatalogVoice, error) {
	const query = `
		SELECT id, name, gender, accent, age_group, tags, tone, quality_tier, provider_ref
		FROM catalog_voices
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list voices: %w", err)
	}
	defer rows.Close()

	var voices []voice.CatalogVoice
	for rows.Next() {
		var (
			v                  voice.CatalogVoice
			gender, age, tier  string
			tagsJSON, toneJSON []byte
		)
		if err := rows.Scan(&v.ID, &v.Name, &gender, &v.Accent, &age, &tagsJSON, &toneJSON, &tier, &v.ProviderRef); err != nil {
			return nil, fmt.Errorf("catalog: scan voice: %w", err)
		}
		v.Gender = voice.Gender(gender)
		v.AgeGroup = voice.AgeGroup(age)
		v.QualityTier = voice.QualityTier(tier)
		if err := json.Unmarshal(tagsJSON, &v.Tags); err != nil {
			return nil, fmt.Errorf("catalog: unmarshal tags for %q: %w", v.ID, err)
		}
		if err := json.Unmarshal(toneJSON, &v.Tone); err != nil {
			return nil, fmt.Errorf("catalog: unmarshal tone for %q: %w", v.ID, err)
		}
		voices = append(voices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list voices rows: %w", err)
	}
	return voices, nil
}

// emptySlice returns s or a non-nil empty slice, so JSONB columns hold [] not null.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
