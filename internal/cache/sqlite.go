package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/relata-hq/location-cli/internal/geo"
)

// SQLite is a durable cache backend using modernc.org/sqlite. A TTL of zero
// means entries never expire.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLite opens (or creates) a SQLite cache at the given path and
// configures WAL mode.
func NewSQLite(dsn string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}

	s := &SQLite{db: db, ttl: ttl}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS resolve_cache (
	cache_key TEXT PRIMARY KEY,
	results   TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(sqliteMigration)
	return eris.Wrap(err, "cache: sqlite migrate")
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, query, lang string) ([]geo.Candidate, bool, error) {
	key := Key(query, lang)

	q := `SELECT results FROM resolve_cache WHERE cache_key = ?`
	args := []any{key}
	if s.ttl > 0 {
		q += ` AND cached_at > ?`
		args = append(args, time.Now().UTC().Add(-s.ttl))
	}

	var raw string
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: sqlite get")
	}

	var results []geo.Candidate
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, false, eris.Wrap(err, "cache: sqlite unmarshal")
	}

	zap.L().Debug("cache hit", zap.String("key", key), zap.Int("results", len(results)))
	return results, true, nil
}

// Put implements Cache.
func (s *SQLite) Put(ctx context.Context, query, lang string, results []geo.Candidate) error {
	if results == nil {
		results = []geo.Candidate{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "cache: sqlite marshal")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolve_cache (cache_key, results, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			results = excluded.results,
			cached_at = excluded.cached_at`,
		Key(query, lang), string(raw), time.Now().UTC(),
	)
	return eris.Wrap(err, "cache: sqlite put")
}

// Clear implements Cache.
func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM resolve_cache`)
	return eris.Wrap(err, "cache: sqlite clear")
}

// Len implements Cache.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM resolve_cache`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "cache: sqlite len")
	}
	return n, nil
}

// Close implements Cache.
func (s *SQLite) Close() error {
	return s.db.Close()
}
