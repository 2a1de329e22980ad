package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relata-hq/location-cli/internal/geo"
)

// Pool is the subset of pgxpool.Pool the postgres backend needs. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a durable cache backend over a pgx pool, for deployments that
// share one cache across instances.
type Postgres struct {
	pool    Pool
	ttl     time.Duration
	closeFn func()
}

// NewPostgres connects to the given database and ensures the cache table
// exists. A TTL of zero means entries never expire.
func NewPostgres(ctx context.Context, connString string, ttl time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres connect")
	}

	p := &Postgres{pool: pool, ttl: ttl, closeFn: pool.Close}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithPool wraps an existing pool. Test seam.
func NewPostgresWithPool(pool Pool, ttl time.Duration) *Postgres {
	return &Postgres{pool: pool, ttl: ttl}
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS resolve_cache (
			cache_key TEXT PRIMARY KEY,
			results   JSONB NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return eris.Wrap(err, "cache: postgres migrate")
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, query, lang string) ([]geo.Candidate, bool, error) {
	key := Key(query, lang)

	q := `SELECT results FROM resolve_cache WHERE cache_key = $1`
	args := []any{key}
	if p.ttl > 0 {
		q += ` AND cached_at > $2`
		args = append(args, time.Now().UTC().Add(-p.ttl))
	}

	var raw []byte
	err := p.pool.QueryRow(ctx, q, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: postgres get")
	}

	var results []geo.Candidate
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, eris.Wrap(err, "cache: postgres unmarshal")
	}

	zap.L().Debug("cache hit", zap.String("key", key), zap.Int("results", len(results)))
	return results, true, nil
}

// Put implements Cache.
func (p *Postgres) Put(ctx context.Context, query, lang string, results []geo.Candidate) error {
	if results == nil {
		results = []geo.Candidate{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "cache: postgres marshal")
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO resolve_cache (cache_key, results, cached_at) VALUES ($1, $2, now())
		ON CONFLICT (cache_key) DO UPDATE SET
			results = EXCLUDED.results,
			cached_at = now()`,
		Key(query, lang), raw,
	)
	return eris.Wrap(err, "cache: postgres put")
}

// Clear implements Cache.
func (p *Postgres) Clear(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM resolve_cache`)
	return eris.Wrap(err, "cache: postgres clear")
}

// Len implements Cache.
func (p *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM resolve_cache`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "cache: postgres len")
	}
	return n, nil
}

// Close implements Cache.
func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
