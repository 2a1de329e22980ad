package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata-hq/location-cli/internal/cache"
	"github.com/relata-hq/location-cli/internal/gazetteer"
	"github.com/relata-hq/location-cli/internal/locale"
	"github.com/relata-hq/location-cli/internal/resolve"
	"github.com/relata-hq/location-cli/internal/throttle"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	gaz := gazetteer.New()
	mapper := locale.NewMapper(gaz)
	keeper := throttle.NewKeeper(throttle.Config{})
	results := cache.NewMemory()
	resolver := resolve.New(
		[]resolve.Tier{resolve.NewGazetteerTier(gaz), resolve.NewStaticTier()},
		keeper,
		results,
		mapper,
	)
	return New(Deps{
		Resolver:  resolver,
		Gazetteer: gaz,
		Mapper:    mapper,
		Cache:     results,
		Keeper:    keeper,
	})
}

func TestWarm(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Warm(context.Background()))
}

func TestSearchThroughLocalChain(t *testing.T) {
	e := newTestEngine(t)
	out := e.Search(context.Background(), "Tokyo", "en", 5)

	require.NotEmpty(t, out)
	assert.Equal(t, "local-tokyo-jp", out[0].ID)
	assert.Equal(t, "Tokyo, Japan", out[0].Label)
}

func TestSearchShortQueryEmpty(t *testing.T) {
	e := newTestEngine(t)
	assert.Empty(t, e.Search(context.Background(), "t", "en", 5))
}

func TestSearchNearby(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Warm(context.Background()))

	// Florence's own coordinates with a tight radius.
	out := e.SearchNearby(context.Background(), 43.7696, 11.2558, 50_000, 5)
	require.NotEmpty(t, out)
	assert.Equal(t, "Florence", out[0].Name)
}

func TestSearchNearbyRejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	assert.Empty(t, e.SearchNearby(ctx, 91, 0, 50_000, 5))
	assert.Empty(t, e.SearchNearby(ctx, 0, 181, 50_000, 5))
	assert.Empty(t, e.SearchNearby(ctx, 43.7, 11.2, 0, 5))
}

func TestPopular(t *testing.T) {
	e := newTestEngine(t)

	out := e.Popular(context.Background(), "en", 3)
	require.Len(t, out, 3)
	for _, c := range out {
		assert.NotEmpty(t, c.Label)
		assert.Empty(t, c.LocalizedName, "English sessions carry no localized names")
	}
}

func TestPopularLocalized(t *testing.T) {
	e := newTestEngine(t)

	out := e.Popular(context.Background(), "ja", 10)
	require.NotEmpty(t, out)
	found := false
	for _, c := range out {
		if c.LocalizedName != "" {
			found = true
			assert.NotEqual(t, c.Name, c.LocalizedName)
		}
	}
	assert.True(t, found, "at least one popular city has a Japanese name")
}

func TestAdvisory(t *testing.T) {
	e := newTestEngine(t)
	assert.Zero(t, e.Advisory("Tokyo").Wait)
}

func TestCacheOperations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.Search(ctx, "Tokyo", "en", 5)

	n, err := e.CacheLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, e.ClearCache(ctx))
	n, err = e.CacheLen(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, e.Close())
}

func TestSessionControllerShowsPopularForShortInput(t *testing.T) {
	e := newTestEngine(t)

	id, ctrl := e.Sessions().Create()
	require.NotEmpty(t, id)

	ctrl.Input(context.Background(), "L", "en")
	snap := ctrl.Snapshot()
	assert.False(t, snap.Loading)
	assert.NotEmpty(t, snap.Results, "short input falls back to popular suggestions")
}

func TestSessionSweep(t *testing.T) {
	e := New(Deps{
		Resolver: resolve.New(
			[]resolve.Tier{resolve.NewStaticTier()},
			throttle.NewKeeper(throttle.Config{}),
			nil,
			locale.NewMapper(nil),
		),
		SessionTTL: time.Minute,
	})
	e.Sessions().Create()
	assert.Equal(t, 1, e.Sessions().Len())
	assert.Zero(t, e.Sessions().Sweep())
}
