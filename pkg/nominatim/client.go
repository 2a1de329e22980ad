// Package nominatim provides a client for the Nominatim search API, the
// engine's secondary public provider. The API requires no key but its usage
// policy mandates an identifying User-Agent and at most one request per
// second, enforced client-side.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/relata-hq/location-cli/internal/geo"
	"github.com/relata-hq/location-cli/internal/throttle"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "location-cli/1.0 (+https://github.com/relata-hq/location-cli)"

	// maxFetch caps how many raw entries one search pulls before the
	// type filter; Nominatim refuses larger limits anyway.
	maxFetch = 50
)

// typePriority ranks place classifications so that, for an ambiguous query,
// a city outranks a hamlet of the same name. Unranked types sort last.
var typePriority = map[string]int{
	"city":         1,
	"town":         2,
	"municipality": 3,
	"village":      4,
	"suburb":       5,
	"hamlet":       6,
}

const unrankedPriority = 99

// Client talks to a Nominatim instance.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Tests point this at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the identifying client header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Nominatim client with usage-policy pacing built in.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Policy requires >= 1s between requests; pace slightly slower.
		limiter: rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimItem is one entry of the jsonv2 search response. Nominatim
// returns coordinates as strings.
type nominatimItem struct {
	PlaceID     int64  `json:"place_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		State        string `json:"state"`
		Country      string `json:"country"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

// cityEquivalent reports whether the entry is a settlement we surface:
// either its own classification is city-like, or its structured address
// carries a city-equivalent component.
func (it *nominatimItem) cityEquivalent() bool {
	if _, ok := typePriority[it.Type]; ok {
		return true
	}
	addr := it.Address
	return addr.City != "" || addr.Town != "" || addr.Village != "" || addr.Municipality != ""
}

func (it *nominatimItem) priority() int {
	if p, ok := typePriority[it.Type]; ok {
		return p
	}
	return unrankedPriority
}

// Search performs a free-text place search, keeping only city-equivalent
// entries ordered by place-type priority. Page is served by over-fetching
// and slicing: Nominatim has no stable offset parameter.
func (c *Client) Search(ctx context.Context, query, language string, limit, page int) ([]geo.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("nominatim: empty query")
	}
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	fetch := (page + 1) * limit
	if fetch > maxFetch {
		fetch = maxFetch
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {strconv.Itoa(fetch)},
		"addressdetails": {"1"},
	}
	if language != "" {
		params.Set("accept-language", language)
	}

	reqURL := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &throttle.StatusError{
			Provider:   "nominatim",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("nominatim: returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	var items []nominatimItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}

	kept := make([]nominatimItem, 0, len(items))
	for _, it := range items {
		if it.cityEquivalent() {
			kept = append(kept, it)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].priority() < kept[b].priority()
	})

	out := make([]geo.Candidate, 0, len(kept))
	for _, it := range kept {
		cand, ok := toCandidate(it)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	out = geo.Sanitize(out)

	// Slice out the requested page of the over-fetched list.
	start := page * limit
	if start >= len(out) {
		return nil, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func toCandidate(it nominatimItem) (geo.Candidate, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(it.Lat), 64)
	if err != nil {
		return geo.Candidate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(it.Lon), 64)
	if err != nil {
		return geo.Candidate{}, false
	}

	name := it.Name
	if name == "" {
		name = firstNonEmpty(it.Address.City, it.Address.Town, it.Address.Village, it.Address.Municipality)
	}
	if name == "" {
		return geo.Candidate{}, false
	}

	return geo.Candidate{
		ID:          fmt.Sprintf("nominatim-%d", it.PlaceID),
		Name:        name,
		Country:     it.Address.Country,
		CountryCode: strings.ToUpper(it.Address.CountryCode),
		Region:      it.Address.State,
		Latitude:    lat,
		Longitude:   lon,
		Label:       geo.MakeLabel(name, it.Address.Country),
	}, true
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
