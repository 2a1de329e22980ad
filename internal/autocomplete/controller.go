// Package autocomplete drives an interactive search box: debounced input,
// paged "load more", and protection against out-of-order responses.
package autocomplete

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/relata-hq/location-cli/internal/geo"
	"github.com/relata-hq/location-cli/internal/resolve"
)

// Defaults for Config zero values.
const (
	DefaultPageSize     = 50
	DefaultDebounce     = 350 * time.Millisecond
	DefaultMinQueryLen  = resolve.MinQueryLen
	DefaultPopularCount = 8
)

// Source produces candidates for a query; *resolve.Resolver satisfies it.
type Source interface {
	Resolve(ctx context.Context, q resolve.Query) []geo.Candidate
}

// PopularFunc supplies the suggestions shown before the user has typed
// enough to search.
type PopularFunc func(n int) []geo.Candidate

// Config tunes a Controller. Zero values take the package defaults.
type Config struct {
	PageSize     int
	Debounce     time.Duration
	MinQueryLen  int
	PopularCount int
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.MinQueryLen <= 0 {
		c.MinQueryLen = DefaultMinQueryLen
	}
	if c.PopularCount <= 0 {
		c.PopularCount = DefaultPopularCount
	}
	return c
}

// Snapshot is the observable state of a Controller at one instant.
type Snapshot struct {
	Query   string          `json:"query"`
	Results []geo.Candidate `json:"results"`
	Loading bool            `json:"loading"`
	HasMore bool            `json:"has_more"`
	Page    int             `json:"page"`
}

// cancelFunc stops a scheduled callback; it reports whether the callback
// had not yet fired.
type cancelFunc func() bool

// Controller owns the state of one search session. All methods are safe
// for concurrent use.
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	source  Source
	popular PopularFunc

	query   string
	lang    string
	results []geo.Candidate
	seen    map[string]struct{}
	page    int
	hasMore bool
	loading bool

	// generation is bumped on every input change; callbacks carrying an
	// older generation are stale and discard their payload.
	generation uint64
	cancel     cancelFunc

	// schedule defers fn by d; swapped out in tests to control timing.
	schedule func(d time.Duration, fn func()) cancelFunc

	onUpdate func(Snapshot)
}

// Option configures a Controller.
type Option func(*Controller)

// WithPopular installs the pre-typing suggestion source.
func WithPopular(fn PopularFunc) Option {
	return func(c *Controller) { c.popular = fn }
}

// WithOnUpdate registers a callback invoked (outside the lock) whenever
// the visible state changes.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

// NewController creates a Controller over source.
func NewController(source Source, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg.withDefaults(),
		source: source,
		seen:   make(map[string]struct{}),
		schedule: func(d time.Duration, fn func()) cancelFunc {
			return time.AfterFunc(d, fn).Stop
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input reports a keystroke-level change to the query text. Resolution is
// debounced: only the latest input within the debounce window triggers a
// search, and any in-flight result for an older input is discarded when it
// lands.
func (c *Controller) Input(ctx context.Context, text, language string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.generation > 0 && text == c.query && language == c.lang {
		// Re-sent identical text; keep the accumulated pages.
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.query = text
	c.lang = language
	c.results = nil
	c.seen = make(map[string]struct{})
	c.page = 0
	c.hasMore = false

	if len([]rune(text)) < c.cfg.MinQueryLen {
		// Too short to search: show popular suggestions immediately and
		// spend no provider budget.
		c.loading = false
		if c.popular != nil {
			c.results = c.popular(c.cfg.PopularCount)
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	c.loading = true
	snap := c.snapshotLocked()
	c.cancel = c.schedule(c.cfg.Debounce, func() {
		c.runSearch(ctx, gen)
	})
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) runSearch(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	q := resolve.Query{Text: c.query, Language: c.lang, Limit: c.cfg.PageSize}
	c.mu.Unlock()

	results := c.source.Resolve(ctx, q)

	c.mu.Lock()
	if gen != c.generation {
		// The user typed again while this search was in flight.
		c.mu.Unlock()
		return
	}
	c.results = results
	c.seen = make(map[string]struct{}, len(results))
	for _, r := range results {
		c.seen[r.ID] = struct{}{}
	}
	c.page = 0
	c.hasMore = len(results) == c.cfg.PageSize
	c.loading = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// LoadMore fetches the next page and appends only candidates not already
// shown. It is a no-op while a load is in flight or when the session is
// already exhausted.
func (c *Controller) LoadMore(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	gen := c.generation
	nextPage := c.page + 1
	q := resolve.Query{Text: c.query, Language: c.lang, Limit: c.cfg.PageSize, Page: nextPage}
	c.loading = true
	c.mu.Unlock()

	results := c.source.Resolve(ctx, q)

	c.mu.Lock()
	if gen != c.generation {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.loading = false

	fresh := 0
	for _, r := range results {
		if _, dup := c.seen[r.ID]; dup {
			continue
		}
		c.seen[r.ID] = struct{}{}
		c.results = append(c.results, r)
		fresh++
	}

	if fresh == 0 {
		// Providers that ignore offsets replay page one forever; a page
		// of pure duplicates is the end of the line.
		c.hasMore = false
	} else {
		c.page = nextPage
		c.hasMore = len(results) >= c.cfg.PageSize
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return snap
}

// Snapshot returns the current visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	results := make([]geo.Candidate, len(c.results))
	copy(results, c.results)
	return Snapshot{
		Query:   c.query,
		Results: results,
		Loading: c.loading,
		HasMore: c.hasMore,
		Page:    c.page,
	}
}

func (c *Controller) notify(snap Snapshot) {
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}
