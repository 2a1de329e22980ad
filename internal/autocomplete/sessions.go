package autocomplete

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session survives before Sweep
// reclaims it.
const DefaultSessionTTL = 15 * time.Minute

type session struct {
	controller *Controller
	lastSeen   time.Time
}

// Manager tracks live search sessions by opaque ID, one Controller each.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	build    func() *Controller
	nowFunc  func() time.Time
}

// NewManager creates a Manager that builds Controllers with build. A
// non-positive ttl takes DefaultSessionTTL.
func NewManager(build func() *Controller, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		build:    build,
		nowFunc:  time.Now,
	}
}

// Create opens a new session and returns its ID and Controller.
func (m *Manager) Create() (string, *Controller) {
	id := uuid.NewString()
	ctrl := m.build()

	m.mu.Lock()
	m.sessions[id] = &session{controller: ctrl, lastSeen: m.nowFunc()}
	m.mu.Unlock()
	return id, ctrl
}

// Get returns the Controller for id and refreshes its idle clock.
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.nowFunc()
	return s.controller, true
}

// Delete removes a session if present.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many were
// reclaimed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.nowFunc().Add(-m.ttl)
	n := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
