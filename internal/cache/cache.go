// Package cache memoizes resolved result sets keyed by normalized query
// text and language. The default backend is in-memory and lives for the
// process lifetime; sqlite and postgres backends are available for
// deployments whose cache should outlive a session.
package cache

import (
	"context"
	"strings"

	"github.com/relata-hq/location-cli/internal/geo"
)

// Cache stores resolved candidate lists. Implementations must be safe for
// concurrent use; writes are last-write-wins.
type Cache interface {
	// Get returns the cached result set for (query, lang), with ok=false
	// on a miss.
	Get(ctx context.Context, query, lang string) ([]geo.Candidate, bool, error)

	// Put stores a result set. An empty list is a valid entry: "no
	// results" is a correct, cacheable answer.
	Put(ctx context.Context, query, lang string, results []geo.Candidate) error

	// Clear discards every entry.
	Clear(ctx context.Context) error

	// Len reports the number of entries.
	Len(ctx context.Context) (int, error)

	Close() error
}

// Key normalizes a (query, lang) pair into the cache key:
// lowercase(trim(query)) + ":" + lang.
func Key(query, lang string) string {
	return strings.ToLower(strings.TrimSpace(query)) + ":" + lang
}
