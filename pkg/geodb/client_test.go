package geodb

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

func TestSearch_ParsesAndNormalizes(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"data": [
				{"id": 3350606, "city": "London", "country": "United Kingdom", "countryCode": "GB", "region": "England", "latitude": 51.5074, "longitude": -0.1278, "population": 8982000},
				{"id": 99, "city": "Broken", "country": "Nowhere", "countryCode": "XX", "latitude": 123.0, "longitude": 0.0}
			]
		}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", "", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "Lon", "en", 10, 0)
	require.NoError(t, err)

	require.Len(t, results, 1, "out-of-range coordinates are discarded")
	assert.Equal(t, "geodb-3350606", results[0].ID)
	assert.Equal(t, "London, United Kingdom", results[0].Label)

	assert.Equal(t, "test-key", gotReq.Header.Get("X-RapidAPI-Key"))
	assert.NotEmpty(t, gotReq.Header.Get("X-RapidAPI-Host"))
	q := gotReq.URL.Query()
	assert.Equal(t, "Lon", q.Get("namePrefix"))
	assert.Equal(t, "-population", q.Get("sort"))
	assert.Equal(t, "0", q.Get("offset"))
}

func TestSearch_OffsetForPaging(t *testing.T) {
	var offset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset = r.URL.Query().Get("offset")
		_, _ = io.WriteString(w, `{"data": []}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", "", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "Lon", "en", 50, 50)
	require.NoError(t, err)
	assert.Equal(t, "50", offset)
}

func TestSearch_RateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", "", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "Lon", "en", 10, 0)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, throttle.StatusOf(err))
}

func TestSearch_AuthFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad-key", "", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "Lon", "en", 10, 0)
	require.Error(t, err)
	assert.True(t, throttle.IsAuthFailure(err))
}

func TestSearch_Unconfigured(t *testing.T) {
	c := NewClient("", "")
	assert.False(t, c.Configured())

	_, err := c.Search(context.Background(), "Lon", "en", 10, 0)
	assert.Error(t, err)
}

func TestSearch_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data": []}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", "", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "zzz", "en", 10, 0)
	require.NoError(t, err, "zero results is success, not failure")
	assert.Empty(t, results)
}
