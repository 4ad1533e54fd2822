package game

import (
	"sync"
	"time"
)

// State is the item list owned by one game session.
//
// Only [State.Apply] mutates the list, and only from a successful turn
// result; failed turns leave it untouched so the player can retry. State also
// enforces the single in-flight turn rule: a session must finish one turn
// before starting the next.
//
// All methods are safe for concurrent use.
type State struct {
	mu       sync.Mutex
	items    []string
	inFlight bool
	lastUsed time.Time
}

// NewState returns an empty session state.
func NewState() *State {
	return &State{lastUsed: time.Now()}
}

// Begin marks a turn as in flight. It returns false if another turn is
// already outstanding for this session, in which case the caller must reject
// the new turn.
func (s *State) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.lastUsed = time.Now()
	return true
}

// Finish marks the in-flight turn as done. Safe to call when no turn is in
// flight.
func (s *State) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.lastUsed = time.Now()
}

// Snapshot returns a copy of the current item list.
func (s *State) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(s.items))
	copy(cp, s.items)
	return cp
}

// Apply adopts the outcome of a turn: on success the held list is replaced
// with res.Items (a copy); on failure the list is left untouched.
func (s *State) Apply(res TurnResult) {
	if !res.Success || res.Items == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]string, len(res.Items))
	copy(s.items, res.Items)
}

// Reset empties the item list.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// idle reports how long ago the state was last touched.
func (s *State) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}
