package game

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/valisia/internal/observe"
)

// defaultIdleEviction is how long a session may sit untouched before the
// manager drops it.
const defaultIdleEviction = 30 * time.Minute

// SessionManager hands out per-session [State] values keyed by an opaque
// session ID. Sessions live purely in memory and are evicted after sitting
// idle; there is deliberately no persistence.
//
// All exported methods are safe for concurrent use.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*State
	idleMax  time.Duration
	metrics  *observe.Metrics
}

// SessionOption configures a [SessionManager].
type SessionOption func(*SessionManager)

// WithSessionMetrics keeps the live-session gauge in sync with session
// creation and eviction. Nil disables recording.
func WithSessionMetrics(m *observe.Metrics) SessionOption {
	return func(sm *SessionManager) {
		sm.metrics = m
	}
}

// NewSessionManager creates an empty SessionManager with the default idle
// eviction window.
func NewSessionManager(opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		sessions: make(map[string]*State),
		idleMax:  defaultIdleEviction,
	}
	for _, o := range opts {
		o(sm)
	}
	return sm
}

// Get returns the State for id, creating it on first use. Stale sessions are
// evicted opportunistically on each call.
func (m *SessionManager) Get(id string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictLocked(time.Now())

	st, ok := m.sessions[id]
	if !ok {
		st = NewState()
		m.sessions[id] = st
		if m.metrics != nil {
			m.metrics.ActiveSessions.Add(context.Background(), 1)
		}
	}
	return st
}

// Len reports the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// evictLocked removes sessions idle longer than idleMax. Caller holds m.mu.
func (m *SessionManager) evictLocked(now time.Time) {
	var evicted int64
	for id, st := range m.sessions {
		if st.idle(now) > m.idleMax {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 && m.metrics != nil {
		m.metrics.ActiveSessions.Add(context.Background(), -evicted)
	}
}
