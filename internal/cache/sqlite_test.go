package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata-hq/location-cli/internal/geo"
)

func newTestSQLite(t *testing.T, ttl time.Duration) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	want := []geo.Candidate{
		{ID: "local-tokyo-jp", Name: "Tokyo", Country: "Japan", CountryCode: "JP", Latitude: 35.6762, Longitude: 139.6503, Label: "Tokyo, Japan"},
	}
	require.NoError(t, s.Put(ctx, "Tokyo", "en", want))

	got, ok, err := s.Get(ctx, " tokyo ", "en")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSQLite_MissAndEmptyEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	_, ok, err := s.Get(ctx, "nope", "en")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "nope", "en", nil))
	got, ok, err := s.Get(ctx, "nope", "en")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSQLite_UpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	require.NoError(t, s.Put(ctx, "q", "en", []geo.Candidate{{ID: "a", Name: "A"}}))
	require.NoError(t, s.Put(ctx, "q", "en", []geo.Candidate{{ID: "b", Name: "B"}}))

	got, ok, err := s.Get(ctx, "q", "en")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, time.Nanosecond)

	require.NoError(t, s.Put(ctx, "q", "en", []geo.Candidate{{ID: "a", Name: "A"}}))
	time.Sleep(10 * time.Millisecond)

	_, ok, err := s.Get(ctx, "q", "en")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are misses")
}

func TestSQLite_Clear(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t, 0)

	require.NoError(t, s.Put(ctx, "q1", "en", nil))
	require.NoError(t, s.Put(ctx, "q2", "en", nil))
	require.NoError(t, s.Clear(ctx))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
