// Package session provides per-session state for the recommendation flow:
// the current result, a per-query result cache, the clicked-solution map, and
// the monotonic request token that guards against stale results.
package session

import (
	"sync"
	"time"
)

// Result is the committed outcome of one query: which ticket won and with
// what score. Position pins the ticket inside the snapshot it was selected
// from; TicketID lets consumers detect a snapshot swap.
type Result struct {
	Query    string
	Position int
	TicketID string
	Score    float64
}

// state holds one session's mutable data.
type state struct {
	token     uint64
	current   *Result
	cache     map[string]Result // query text -> committed result
	clicked   map[string]string // ticket ID -> confirmed solution key
	updatedAt time.Time
}

// Store provides in-memory session storage. Sessions expire after a period
// of inactivity.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
	ttl      time.Duration
}

// NewStore creates a session store with the given inactivity TTL.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*state),
		ttl:      ttl,
	}

	// Start cleanup goroutine
	go s.cleanupLoop()

	return s
}

// DefaultStore creates a store with a 1 hour inactivity TTL.
func DefaultStore() *Store {
	return NewStore(1 * time.Hour)
}

// Begin registers a new in-flight query for the session and returns its
// request token. Tokens increase monotonically per session; only the holder
// of the latest token may commit a result.
func (s *Store) Begin(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	st.token++
	st.updatedAt = time.Now()
	return st.token
}

// Commit stores the result iff token is still the session's latest. A stale
// commit reports false and leaves the session untouched: a superseded query
// must never overwrite a newer one's result. Committing also resets the
// clicked-solution map, since a new result starts a fresh confirmation round.
func (s *Store) Commit(sessionID string, token uint64, res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	if token != st.token {
		return false
	}

	st.current = &res
	st.cache[res.Query] = res
	st.clicked = make(map[string]string)
	st.updatedAt = time.Now()
	return true
}

// Cached returns the committed result for a previously seen query text.
func (s *Store) Cached(sessionID, query string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return Result{}, false
	}
	res, ok := st.cache[query]
	return res, ok
}

// Current returns the session's current result.
func (s *Store) Current(sessionID string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok || st.current == nil {
		return Result{}, false
	}
	return *st.current, true
}

// MarkClicked records that the user confirmed a solution for a ticket.
func (s *Store) MarkClicked(sessionID, ticketID, solutionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.get(sessionID)
	st.clicked[ticketID] = solutionKey
	st.updatedAt = time.Now()
}

// Clicked returns the solution key the user confirmed for a ticket, if any.
func (s *Store) Clicked(sessionID, ticketID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}
	key, ok := st.clicked[ticketID]
	return key, ok
}

// ClearSession removes a session.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// get returns the session state, creating it if absent. Callers hold s.mu.
func (s *Store) get(sessionID string) *state {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{
			cache:   make(map[string]Result),
			clicked: make(map[string]string),
		}
		s.sessions[sessionID] = st
	}
	return st
}

// cleanupLoop periodically removes expired sessions.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, st := range s.sessions {
		if now.Sub(st.updatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
