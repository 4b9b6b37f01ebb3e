package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixedStore(db DB) *PostgresStore {
	s := NewPostgresStore(db, time.Hour)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS voice_result_cache") {
				t.Errorf("Migrate SQL = %s", sql)
			}
			return pgconn.CommandTag{}, nil
		},
	}
	if err := newFixedStore(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() unexpected error: %v", err)
	}
}

func TestPostgresStore_Get(t *testing.T) {
	t.Parallel()

	t.Run("hit", func(t *testing.T) {
		t.Parallel()
		raw, _ := json.Marshal(candidate("gen-1", 77.5))
		created := fixedNow.Add(-10 * time.Minute)
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				if !strings.Contains(sql, "created_at > $2") {
					t.Errorf("Get SQL missing TTL filter: %s", sql)
				}
				if args[0] != "h1" {
					t.Errorf("hash arg = %v", args[0])
				}
				if cutoff := args[1].(time.Time); !cutoff.Equal(fixedNow.Add(-time.Hour)) {
					t.Errorf("cutoff = %v, want %v", cutoff, fixedNow.Add(-time.Hour))
				}
				return &mockRow{scanFunc: func(dest ...any) error {
					*dest[0].(*[]byte) = raw
					*dest[1].(*time.Time) = created
					return nil
				}}
			},
		}
		e, ok, err := newFixedStore(db).Get(context.Background(), "h1")
		if err != nil || !ok {
			t.Fatalf("Get = ok %v, err %v", ok, err)
		}
		if e.Candidate.ID() != "gen-1" || e.Candidate.Score != 77.5 || !e.CreatedAt.Equal(created) {
			t.Errorf("entry = %+v", e)
		}
		if string(e.Candidate.Generated.Audio) != "\x01\x02\x03" {
			t.Errorf("audio not round-tripped: %v", e.Candidate.Generated.Audio)
		}
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		_, ok, err := newFixedStore(&mockDB{}).Get(context.Background(), "nope")
		if ok || err != nil {
			t.Errorf("Get = ok %v, err %v, want miss without error", ok, err)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(context.Context, string, ...any) pgx.Row {
				return &mockRow{scanFunc: func(...any) error { return errors.New("connection reset") }}
			},
		}
		_, ok, err := newFixedStore(db).Get(context.Background(), "h")
		if ok || err == nil || !strings.Contains(err.Error(), "resultcache: get") {
			t.Errorf("Get = ok %v, err %v", ok, err)
		}
	})
}

func TestPostgresStore_Set(t *testing.T) {
	t.Parallel()
	var args []any
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, a ...any) (pgconn.CommandTag, error) {
			if !strings.Contains(sql, "ON CONFLICT (hash) DO UPDATE") {
				t.Errorf("Set SQL = %s", sql)
			}
			args = a
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	if err := newFixedStore(db).Set(context.Background(), "h1", candidate("gen-1", 60)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(args) != 3 || args[0] != "h1" || !args[2].(time.Time).Equal(fixedNow) {
		t.Fatalf("args = %v", args)
	}
	if !strings.Contains(string(args[1].([]byte)), `"gen-1"`) {
		t.Errorf("candidate JSON = %s", args[1])
	}
}

func TestPostgresStore_Prune(t *testing.T) {
	t.Parallel()
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, a ...any) (pgconn.CommandTag, error) {
			if !strings.HasPrefix(sql, "DELETE FROM voice_result_cache") {
				t.Errorf("Prune SQL = %s", sql)
			}
			return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", 3)), nil
		},
	}
	n, err := newFixedStore(db).Prune(context.Background())
	if err != nil || n != 3 {
		t.Errorf("Prune = %d, %v, want 3, nil", n, err)
	}
}
