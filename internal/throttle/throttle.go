// Package throttle provides per-key request pacing and failure-based circuit
// breaking for outbound provider calls. The breaker is purely local: it never
// sleeps or retries on its own — refused calls fall through to the next
// resolution tier.
package throttle

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrThrottled is returned when a request under the same key was issued less
// than the minimum interval ago.
var ErrThrottled = eris.New("throttle: request issued too soon")

// ErrCircuitOpen is returned when a key has hit the failure ceiling and the
// reset window has not yet elapsed.
var ErrCircuitOpen = eris.New("throttle: too many recent failures")

const (
	// DefaultMaxFailures is the failure ceiling beyond which calls are
	// refused locally without any network activity.
	DefaultMaxFailures = 3

	// DefaultResetWindow is how long a failure record survives after the
	// last failure before it is discarded.
	DefaultResetWindow = 5 * time.Minute

	// DefaultMinInterval paces repeated requests under one key.
	DefaultMinInterval = time.Second

	maxBackoff = 30 * time.Second
)

// Config controls Keeper behavior. Zero values take the package defaults.
type Config struct {
	MaxFailures int
	ResetWindow time.Duration
}

type entry struct {
	lastRequest time.Time
	failures    int
	lastFailure time.Time
}

// State is an observable snapshot of a single throttle key.
type State struct {
	LastRequestAt time.Time `json:"last_request_at"`
	Failures      int       `json:"failures"`
	LastFailureAt time.Time `json:"last_failure_at,omitempty"`
}

// Keeper tracks request timing and failure records per throttle key.
// All methods are safe for concurrent use.
type Keeper struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxFailures int
	resetWindow time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewKeeper creates a Keeper with the given config.
func NewKeeper(cfg Config) *Keeper {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = DefaultResetWindow
	}
	return &Keeper{
		entries:     make(map[string]*entry),
		maxFailures: cfg.MaxFailures,
		resetWindow: cfg.ResetWindow,
		nowFunc:     time.Now,
	}
}

// Key builds the throttle key for an operation and query.
func Key(operation, query string) string {
	return operation + ":" + strings.ToLower(strings.TrimSpace(query))
}

// Allow reports whether a request under key may proceed. A nil return means
// the caller must issue the request: the key's last-request timestamp is
// stamped synchronously before Allow returns, so a burst of near-simultaneous
// callers cannot all pass the check.
func (k *Keeper) Allow(key string, minInterval time.Duration) error {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.nowFunc()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}

	// A failure record expires once the reset window has elapsed.
	if e.failures > 0 && now.Sub(e.lastFailure) > k.resetWindow {
		e.failures = 0
		e.lastFailure = time.Time{}
	}

	if e.failures >= k.maxFailures {
		return ErrCircuitOpen
	}

	if !e.lastRequest.IsZero() && now.Sub(e.lastRequest) < minInterval {
		return ErrThrottled
	}

	e.lastRequest = now
	return nil
}

// RecordFailure notes a genuine provider failure (non-2xx, timeout, malformed
// payload) against key. Zero-result responses are successes and must not be
// recorded here.
func (k *Keeper) RecordFailure(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.failures++
	if e.failures > k.maxFailures {
		e.failures = k.maxFailures // saturate at the ceiling
	}
	e.lastFailure = k.nowFunc()

	if e.failures >= k.maxFailures {
		zap.L().Warn("throttle: failure ceiling reached",
			zap.String("key", key),
			zap.Int("failures", e.failures),
		)
	}
}

// RecordSuccess clears the failure record for key.
func (k *Keeper) RecordSuccess(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e, ok := k.entries[key]; ok {
		e.failures = 0
		e.lastFailure = time.Time{}
	}
}

// RetryAfter returns the advisory wait before key may be retried. Zero means
// the key is not currently blocked.
func (k *Keeper) RetryAfter(key string, minInterval time.Duration) time.Duration {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		return 0
	}

	now := k.nowFunc()
	if e.failures >= k.maxFailures && now.Sub(e.lastFailure) <= k.resetWindow {
		return k.resetWindow - now.Sub(e.lastFailure)
	}
	if !e.lastRequest.IsZero() && now.Sub(e.lastRequest) < minInterval {
		return minInterval - now.Sub(e.lastRequest)
	}
	return 0
}

// Reset discards all state for key.
func (k *Keeper) Reset(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
}

// Failures returns the current failure count for key.
func (k *Keeper) Failures(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.entries[key]; ok {
		return e.failures
	}
	return 0
}

// Snapshot returns the current state of every tracked key.
func (k *Keeper) Snapshot() map[string]State {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make(map[string]State, len(k.entries))
	for key, e := range k.entries {
		out[key] = State{
			LastRequestAt: e.lastRequest,
			Failures:      e.failures,
			LastFailureAt: e.lastFailure,
		}
	}
	return out
}

// BackoffDelay returns the advisory exponential backoff for a retry count:
// min(1s * 2^retryCount, 30s). It is informational — surfaced to callers as a
// "try again in N seconds" hint, never slept on internally.
func BackoffDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := float64(time.Second) * math.Pow(2, float64(retryCount))
	if d > float64(maxBackoff) {
		return maxBackoff
	}
	return time.Duration(d)
}
