// Package resolve orchestrates the provider fallback chain: a metered
// primary API, a public geocoding API, the bundled gazetteer, and a static
// list, tried in order until one yields usable candidates. The resolver
// never raises to its caller — every tier failure is caught and the chain
// falls through.
package resolve

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relata-hq/location-cli/internal/cache"
	"github.com/relata-hq/location-cli/internal/gazetteer"
	"github.com/relata-hq/location-cli/internal/geo"
	"github.com/relata-hq/location-cli/internal/locale"
	"github.com/relata-hq/location-cli/internal/throttle"
)

// MinQueryLen mirrors the gazetteer's minimum: shorter input is rejected
// locally with zero results and zero network calls.
const MinQueryLen = gazetteer.MinQueryLen

// Query is one resolution request.
type Query struct {
	Text     string
	Language string
	Limit    int
	Page     int
}

// TierResult is the tagged outcome of a single tier: candidates, or an
// explicit "nothing usable here, keep going". Hard failures travel as the
// error return.
type TierResult struct {
	Candidates []geo.Candidate
	Skipped    bool
}

// Tier is one provider (or fallback) in the ordered resolution chain.
type Tier interface {
	Name() string

	// Available reports whether the tier can be attempted at all
	// (e.g. a metered tier without a credential is unavailable).
	Available() bool

	// Network reports whether Resolve performs a network call; network
	// tiers are guarded by the throttle keeper and skipped offline.
	Network() bool

	Resolve(ctx context.Context, q Query) (TierResult, error)
}

// Resolver runs the chain. Construct with New; all state is instance-owned.
type Resolver struct {
	tiers        []Tier
	keeper       *throttle.Keeper
	cache        cache.Cache
	mapper       *locale.Mapper
	online       func() bool
	minIntervals map[string]time.Duration
}

// Option configures the resolver.
type Option func(*Resolver)

// WithOnlineCheck installs a connectivity probe. When it reports false,
// network tiers are skipped without counting as failures — a pure
// optimization over letting the calls fail.
func WithOnlineCheck(fn func() bool) Option {
	return func(r *Resolver) { r.online = fn }
}

// WithMinInterval sets the per-tier pacing interval used by the throttle
// guard. Nominatim's usage policy needs more than a second.
func WithMinInterval(tier string, d time.Duration) Option {
	return func(r *Resolver) { r.minIntervals[tier] = d }
}

// New creates a Resolver over the given chain. The cache may be nil
// (resolution without memoization); keeper and mapper must not be.
func New(tiers []Tier, keeper *throttle.Keeper, resultCache cache.Cache, mapper *locale.Mapper, opts ...Option) *Resolver {
	r := &Resolver{
		tiers:  tiers,
		keeper: keeper,
		cache:  resultCache,
		mapper: mapper,
		minIntervals: map[string]time.Duration{
			"nominatim": 1100 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) minInterval(tier string) time.Duration {
	if d, ok := r.minIntervals[tier]; ok {
		return d
	}
	return throttle.DefaultMinInterval
}

// Resolve runs the chain for q and returns the best available candidates.
// An empty return after every tier has been tried is the correct final
// answer, not an error.
func (r *Resolver) Resolve(ctx context.Context, q Query) []geo.Candidate {
	text := strings.TrimSpace(q.Text)
	if len([]rune(text)) < MinQueryLen {
		return nil
	}
	lang := locale.BaseLang(q.Language)
	if q.Limit <= 0 {
		q.Limit = 10
	}

	// Only first pages are memoized; "load more" pages are cheap relative
	// to their dedup bookkeeping and would fragment the key space.
	cacheable := q.Page == 0
	if cacheable && r.cache != nil {
		if results, ok, err := r.cache.Get(ctx, text, lang); err == nil && ok {
			return results
		}
	}

	// A localized spelling ("Firenze") resolves as its canonical form so
	// every tier and the cache agree on one underlying place.
	searchQ := q
	searchQ.Text = r.mapper.ToCanonical(text, lang)
	searchQ.Language = lang

	for _, tier := range r.tiers {
		if !tier.Available() {
			continue
		}

		var key string
		if tier.Network() {
			if r.online != nil && !r.online() {
				zap.L().Debug("resolve: offline, skipping network tier", zap.String("tier", tier.Name()))
				continue
			}
			key = throttle.Key(tier.Name(), text)
			if err := r.keeper.Allow(key, r.minInterval(tier.Name())); err != nil {
				zap.L().Debug("resolve: tier throttled",
					zap.String("tier", tier.Name()),
					zap.Error(err),
				)
				continue
			}
		}

		res, err := tier.Resolve(ctx, searchQ)
		if err != nil {
			// A canceled caller is not a provider fault and must not
			// feed the breaker; a deadline still counts as a timeout.
			if tier.Network() && !errors.Is(err, context.Canceled) {
				r.keeper.RecordFailure(key)
			}
			if throttle.IsAuthFailure(err) {
				zap.L().Warn("resolve: tier credential rejected, check configuration",
					zap.String("tier", tier.Name()),
					zap.Error(err),
				)
			} else {
				zap.L().Debug("resolve: tier failed, trying next",
					zap.String("tier", tier.Name()),
					zap.Error(err),
				)
			}
			continue
		}
		if tier.Network() {
			r.keeper.RecordSuccess(key)
		}

		if res.Skipped || len(res.Candidates) == 0 {
			// Zero results is a valid outcome, not a failure; a lower
			// tier may still find a better prefix match.
			continue
		}

		out := geo.DedupeByID(geo.Sanitize(res.Candidates))
		if len(out) == 0 {
			continue
		}
		if len(out) > q.Limit {
			out = out[:q.Limit]
		}
		out = r.mapper.AnnotateAll(out, lang)

		if cacheable && r.cache != nil {
			if err := r.cache.Put(ctx, text, lang, out); err != nil {
				zap.L().Debug("resolve: cache write failed", zap.Error(err))
			}
		}
		return out
	}

	// Total exhaustion: cache the empty answer too, so retyped queries
	// don't re-walk the chain.
	if cacheable && r.cache != nil {
		_ = r.cache.Put(ctx, text, lang, nil)
	}
	return nil
}

// RetryAfter returns the longest advisory wait across the chain's network
// tiers for a query, for "try again in N seconds" hints. Zero means no tier
// is currently blocked.
func (r *Resolver) RetryAfter(queryText string) time.Duration {
	var longest time.Duration
	for _, tier := range r.tiers {
		if !tier.Network() {
			continue
		}
		key := throttle.Key(tier.Name(), queryText)
		if d := r.keeper.RetryAfter(key, r.minInterval(tier.Name())); d > longest {
			longest = d
		}
	}
	return longest
}
