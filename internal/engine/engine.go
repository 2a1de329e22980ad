// Package engine is the caller-facing surface: it assembles the resolver
// chain, gazetteer, localization mapper, cache, and session manager into
// one object the CLI and HTTP layers share.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relata-hq/location-cli/internal/autocomplete"
	"github.com/relata-hq/location-cli/internal/cache"
	"github.com/relata-hq/location-cli/internal/gazetteer"
	"github.com/relata-hq/location-cli/internal/geo"
	"github.com/relata-hq/location-cli/internal/locale"
	"github.com/relata-hq/location-cli/internal/resolve"
	"github.com/relata-hq/location-cli/internal/throttle"
)

// WaitAdvisory tells a caller how long to hold off before re-issuing a
// query. Zero means go ahead.
type WaitAdvisory struct {
	Wait time.Duration `json:"wait_ms"`
}

// Engine bundles the resolution pipeline behind a small synchronous API.
// Search-path methods never return hard errors: degraded tiers degrade the
// answer, not the call.
type Engine struct {
	resolver *resolve.Resolver
	gaz      *gazetteer.Index
	mapper   *locale.Mapper
	cache    cache.Cache
	keeper   *throttle.Keeper
	sessions *autocomplete.Manager
	ctrlCfg  autocomplete.Config
}

// Deps are the wired components an Engine runs on. Cache may be nil.
type Deps struct {
	Resolver   *resolve.Resolver
	Gazetteer  *gazetteer.Index
	Mapper     *locale.Mapper
	Cache      cache.Cache
	Keeper     *throttle.Keeper
	Controller autocomplete.Config
	SessionTTL time.Duration
}

// New assembles an Engine from deps.
func New(deps Deps) *Engine {
	e := &Engine{
		resolver: deps.Resolver,
		gaz:      deps.Gazetteer,
		mapper:   deps.Mapper,
		cache:    deps.Cache,
		keeper:   deps.Keeper,
		ctrlCfg:  deps.Controller,
	}
	e.sessions = autocomplete.NewManager(e.newController, deps.SessionTTL)
	return e
}

func (e *Engine) newController() *autocomplete.Controller {
	return autocomplete.NewController(e.resolver, e.ctrlCfg,
		autocomplete.WithPopular(e.popularN))
}

func (e *Engine) popularN(n int) []geo.Candidate {
	if e.gaz == nil {
		return nil
	}
	return e.gaz.PopularCities(n)
}

// Warm pre-builds the gazetteer index and pings the cache so the first
// interactive query pays no startup cost. Safe to skip; everything builds
// lazily on demand.
func (e *Engine) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if e.gaz != nil {
		g.Go(func() error {
			if err := e.gaz.Warm(); err != nil {
				return eris.Wrap(err, "warm gazetteer")
			}
			return nil
		})
	}
	if e.cache != nil {
		g.Go(func() error {
			if _, err := e.cache.Len(ctx); err != nil {
				return eris.Wrap(err, "warm cache")
			}
			return nil
		})
	}
	return g.Wait()
}

// Search resolves free-text input through the provider chain.
func (e *Engine) Search(ctx context.Context, query, lang string, limit int) []geo.Candidate {
	return e.resolver.Resolve(ctx, resolve.Query{Text: query, Language: lang, Limit: limit})
}

// SearchNearby lists known cities within radiusMeters of a point, nearest
// first. Out-of-range coordinates yield an empty list.
func (e *Engine) SearchNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) []geo.Candidate {
	if !geo.ValidCoordinates(lat, lon) || radiusMeters <= 0 {
		zap.L().Debug("engine: rejecting nearby request",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Float64("radius_m", radiusMeters),
		)
		return nil
	}
	if e.gaz == nil {
		return nil
	}
	return e.gaz.Nearby(lat, lon, radiusMeters, limit)
}

// Popular returns the default suggestions shown before the user has typed
// a resolvable query, localized for lang.
func (e *Engine) Popular(_ context.Context, lang string, limit int) []geo.Candidate {
	out := e.popularN(limit)
	if e.mapper != nil {
		out = e.mapper.AnnotateAll(out, locale.BaseLang(lang))
	}
	return out
}

// Advisory reports how long a caller should wait before retrying query.
func (e *Engine) Advisory(query string) WaitAdvisory {
	return WaitAdvisory{Wait: e.resolver.RetryAfter(query)}
}

// Sessions exposes the autocomplete session manager for the HTTP facade.
func (e *Engine) Sessions() *autocomplete.Manager {
	return e.sessions
}

// ThrottleSnapshot reports per-key throttle state for health payloads.
func (e *Engine) ThrottleSnapshot() map[string]throttle.State {
	if e.keeper == nil {
		return nil
	}
	return e.keeper.Snapshot()
}

// ClearCache empties the result cache.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	if err := e.cache.Clear(ctx); err != nil {
		return eris.Wrap(err, "clear result cache")
	}
	return nil
}

// CacheLen reports the number of cached entries, zero when no cache is
// configured.
func (e *Engine) CacheLen(ctx context.Context) (int, error) {
	if e.cache == nil {
		return 0, nil
	}
	n, err := e.cache.Len(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "count cache entries")
	}
	return n, nil
}

// Close releases backing resources.
func (e *Engine) Close() error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Close()
}
