package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/relata-hq/location-cli/internal/autocomplete"
	"github.com/relata-hq/location-cli/internal/cache"
	"github.com/relata-hq/location-cli/internal/engine"
	"github.com/relata-hq/location-cli/internal/gazetteer"
	"github.com/relata-hq/location-cli/internal/locale"
	"github.com/relata-hq/location-cli/internal/resolve"
	"github.com/relata-hq/location-cli/internal/throttle"
	"github.com/relata-hq/location-cli/pkg/geodb"
	"github.com/relata-hq/location-cli/pkg/nominatim"
)

// engineEnv holds the assembled engine and the resources it owns; the
// search/nearby/popular/cache/serve commands all run on one of these.
type engineEnv struct {
	Engine *engine.Engine
}

// Close releases resources held by the engine environment.
func (ee *engineEnv) Close() {
	if ee.Engine != nil {
		_ = ee.Engine.Close()
	}
}

// initEngine wires the cache backend, provider clients, resolver chain, and
// engine from config. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resultCache, err := initCache(ctx)
	if err != nil {
		return nil, err
	}

	gaz := gazetteer.New()
	mapper := locale.NewMapper(gaz)
	keeper := throttle.NewKeeper(throttle.Config{
		MaxFailures: cfg.Throttle.MaxFailures,
		ResetWindow: time.Duration(cfg.Throttle.ResetWindowMins) * time.Minute,
	})

	geodbClient := geodb.NewClient(cfg.GeoDB.Key, cfg.GeoDB.Host,
		geodb.WithBaseURL(cfg.GeoDB.BaseURL))
	if !geodbClient.Configured() {
		zap.L().Debug("LOCATION_GEODB_KEY not set, GeoDB Cities tier disabled")
	}
	nominatimClient := nominatim.NewClient(
		nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
		nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
	)

	tiers := []resolve.Tier{
		resolve.NewGeoDBTier(geodbClient),
		resolve.NewNominatimTier(nominatimClient),
		resolve.NewGazetteerTier(gaz),
		resolve.NewStaticTier(),
	}

	resolver := resolve.New(tiers, keeper, resultCache, mapper,
		resolve.WithMinInterval("nominatim", time.Duration(cfg.Nominatim.MinIntervalMS)*time.Millisecond),
		resolve.WithOnlineCheck(func() bool { return !offline }),
	)

	eng := engine.New(engine.Deps{
		Resolver:  resolver,
		Gazetteer: gaz,
		Mapper:    mapper,
		Cache:     resultCache,
		Keeper:    keeper,
		Controller: autocomplete.Config{
			PageSize:     cfg.Autocomplete.PageSize,
			Debounce:     time.Duration(cfg.Autocomplete.DebounceMS) * time.Millisecond,
			MinQueryLen:  cfg.Autocomplete.MinQueryLen,
			PopularCount: cfg.Autocomplete.PopularCount,
		},
		SessionTTL: time.Duration(cfg.Autocomplete.SessionTTLMins) * time.Minute,
	})

	if err := eng.Warm(ctx); err != nil {
		zap.L().Warn("engine warmup failed, continuing with lazy init", zap.Error(err))
	}

	return &engineEnv{Engine: eng}, nil
}

// initCache selects the cache backend from config.
func initCache(ctx context.Context) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "", "memory":
		return cache.NewMemory(), nil
	case "sqlite":
		c, err := cache.NewSQLite(cfg.Cache.DatabaseURL, cfg.Cache.TTL())
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite cache")
		}
		return c, nil
	case "postgres":
		c, err := cache.NewPostgres(ctx, cfg.Cache.DatabaseURL, cfg.Cache.TTL())
		if err != nil {
			return nil, eris.Wrap(err, "open postgres cache")
		}
		return c, nil
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
