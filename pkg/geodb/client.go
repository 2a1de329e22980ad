// Package geodb provides a client for the GeoDB Cities API, the engine's
// primary metered provider: name-prefix city search sorted by population
// descending, authenticated with a RapidAPI key header pair.
package geodb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/relata-hq/location-cli/internal/geo"
	"github.com/relata-hq/location-cli/internal/throttle"
)

const defaultBaseURL = "https://wft-geo-db.p.rapidapi.com"

// Client talks to the GeoDB Cities API.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Tests point this at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a GeoDB client. An empty key leaves the client
// unconfigured; Configured reports this and callers skip the tier.
func NewClient(apiKey, apiHost string, opts ...Option) *Client {
	if apiHost == "" {
		apiHost = "wft-geo-db.p.rapidapi.com"
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		apiHost:    apiHost,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Free-tier GeoDB allows 1 req/s.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// geoDBResponse is the JSON envelope from the cities endpoint.
type geoDBResponse struct {
	Data []geoDBCity `json:"data"`
}

type geoDBCity struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Population  int64   `json:"population"`
}

// Search queries cities by name prefix, sorted by population descending.
// Offset pages through results. HTTP 429 and 401/403 come back as
// *throttle.StatusError so the resolver can classify them.
func (c *Client) Search(ctx context.Context, namePrefix, languageCode string, limit, offset int) ([]geo.Candidate, error) {
	if !c.Configured() {
		return nil, eris.New("geodb: api key not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geodb: rate limit")
	}

	params := url.Values{
		"namePrefix": {namePrefix},
		"limit":      {strconv.Itoa(limit)},
		"offset":     {strconv.Itoa(offset)},
		"sort":       {"-population"},
		"types":      {"CITY"},
	}
	if languageCode != "" {
		params.Set("languageCode", languageCode)
	}

	reqURL := c.baseURL + "/v1/geo/cities?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geodb: build request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geodb: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &throttle.StatusError{
			Provider:   "geodb",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("geodb: returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geodb: read body")
	}

	var parsed geoDBResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geodb: parse response")
	}

	out := make([]geo.Candidate, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		name := item.City
		if name == "" {
			name = item.Name
		}
		out = append(out, geo.Candidate{
			ID:          fmt.Sprintf("geodb-%d", item.ID),
			Name:        name,
			Country:     item.Country,
			CountryCode: item.CountryCode,
			Region:      item.Region,
			Latitude:    item.Latitude,
			Longitude:   item.Longitude,
			Population:  item.Population,
			Label:       geo.MakeLabel(name, item.Country),
		})
	}
	return geo.Sanitize(out), nil
}
