package nominatim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata-hq/location-cli/internal/throttle"
)

const sampleResponse = `[
	{"place_id": 1, "name": "Springfield", "class": "place", "type": "hamlet", "lat": "40.1", "lon": "-89.5",
	 "address": {"village": "Springfield", "state": "Illinois", "country": "United States", "country_code": "us"}},
	{"place_id": 2, "name": "Springfield", "class": "place", "type": "city", "lat": "39.8", "lon": "-89.65",
	 "address": {"city": "Springfield", "state": "Illinois", "country": "United States", "country_code": "us"}},
	{"place_id": 3, "name": "Springfield Library", "class": "amenity", "type": "library", "lat": "39.8", "lon": "-89.65",
	 "address": {"country": "United States", "country_code": "us"}},
	{"place_id": 4, "name": "Springfield", "class": "place", "type": "town", "lat": "44.05", "lon": "-123.02",
	 "address": {"town": "Springfield", "state": "Oregon", "country": "United States", "country_code": "us"}}
]`

func TestSearch_FiltersAndSortsByTypePriority(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Springfield", "en", 10, 0)
	require.NoError(t, err)

	// The amenity entry has no city-equivalent address field and is dropped;
	// city sorts above town above hamlet.
	require.Len(t, results, 3)
	assert.Equal(t, "nominatim-2", results[0].ID)
	assert.Equal(t, "nominatim-4", results[1].ID)
	assert.Equal(t, "nominatim-1", results[2].ID)

	assert.NotEmpty(t, ua, "usage policy requires an identifying User-Agent")
}

func TestSearch_CandidateShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Springfield", "en", 10, 0)
	require.NoError(t, err)

	top := results[0]
	assert.Equal(t, "Springfield", top.Name)
	assert.Equal(t, "US", top.CountryCode)
	assert.Equal(t, "Illinois", top.Region)
	assert.Equal(t, "Springfield, United States", top.Label)
	assert.InDelta(t, 39.8, top.Latitude, 0.001)
}

func TestSearch_PageSlicing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Page 1 at limit 2 over-fetches 4 entries.
		assert.Equal(t, "4", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, sampleResponse)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Springfield", "en", 2, 1)
	require.NoError(t, err)

	// 3 survive the filter; page 1 of size 2 holds only the third.
	require.Len(t, results, 1)
	assert.Equal(t, "nominatim-1", results[0].ID)
}

func TestSearch_PageBeyondResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Springfield", "en", 10, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "Springfield", "en", 10, 0)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, throttle.StatusOf(err))
	assert.True(t, throttle.IsTransientStatus(throttle.StatusOf(err)))
}

func TestSearch_BadCoordinatesDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[
			{"place_id": 5, "name": "Ghost", "class": "place", "type": "city", "lat": "not-a-number", "lon": "0",
			 "address": {"city": "Ghost", "country": "Nowhere", "country_code": "xx"}}
		]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Ghost", "en", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	c := NewClient()
	_, err := c.Search(context.Background(), "   ", "en", 10, 0)
	assert.Error(t, err)
}
