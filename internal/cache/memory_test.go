package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata-hq/location-cli/internal/geo"
)

func TestKey_Normalization(t *testing.T) {
	assert.Equal(t, "london:en", Key("  London ", "en"))
	assert.Equal(t, Key("LONDON", "en"), Key("london", "en"))
	assert.NotEqual(t, Key("london", "en"), Key("london", "it"))
}

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "London", "en")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []geo.Candidate{{ID: "local-london-gb", Name: "London", Country: "United Kingdom"}}
	require.NoError(t, m.Put(ctx, "London", "en", want))

	// Retyped with different whitespace/case still hits.
	got, ok, err := m.Get(ctx, "  london ", "en")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	n, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_EmptyResultIsCacheable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "atlantis", "en", nil))

	got, ok, err := m.Get(ctx, "atlantis", "en")
	require.NoError(t, err)
	assert.True(t, ok, "a cached empty result is a hit")
	assert.Empty(t, got)
}

func TestMemory_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := []geo.Candidate{{ID: "a", Name: "A"}}
	second := []geo.Candidate{{ID: "b", Name: "B"}}
	require.NoError(t, m.Put(ctx, "q", "en", first))
	require.NoError(t, m.Put(ctx, "q", "en", second))

	got, ok, _ := m.Get(ctx, "q", "en")
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "q", "en", []geo.Candidate{{ID: "a", Name: "A"}}))
	require.NoError(t, m.Clear(ctx))

	_, ok, _ := m.Get(ctx, "q", "en")
	assert.False(t, ok)
	n, _ := m.Len(ctx)
	assert.Zero(t, n)
}

func TestMemory_CallerCannotMutateCachedEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "q", "en", []geo.Candidate{{ID: "a", Name: "A"}}))
	got, _, _ := m.Get(ctx, "q", "en")
	got[0].Name = "mutated"

	again, _, _ := m.Get(ctx, "q", "en")
	assert.Equal(t, "A", again[0].Name)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Put(ctx, "q", "en", []geo.Candidate{{ID: "a", Name: "A"}})
		}()
		go func() {
			defer wg.Done()
			_, _, _ = m.Get(ctx, "q", "en")
		}()
	}
	wg.Wait()

	got, ok, _ := m.Get(ctx, "q", "en")
	require.True(t, ok)
	assert.Equal(t, "A", got[0].Name)
}
