package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relata-hq/location-cli/internal/geo"
)

// Memory is the default process-lifetime backend. No eviction: query
// cardinality within a client session is small, and restart clears it.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]geo.Candidate
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]geo.Candidate)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, query, lang string) ([]geo.Candidate, bool, error) {
	key := Key(query, lang)

	m.mu.RLock()
	results, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	zap.L().Debug("cache hit", zap.String("key", key), zap.Int("results", len(results)))
	return append([]geo.Candidate(nil), results...), true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, query, lang string, results []geo.Candidate) error {
	key := Key(query, lang)

	m.mu.Lock()
	m.entries[key] = append([]geo.Candidate(nil), results...)
	m.mu.Unlock()
	return nil
}

// Clear implements Cache.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string][]geo.Candidate)
	m.mu.Unlock()
	return nil
}

// Len implements Cache.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close implements Cache.
func (m *Memory) Close() error { return nil }
