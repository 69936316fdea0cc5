package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/bizagent/core"
)

// ErrNotFound is returned when a session id is unknown to the store.
var ErrNotFound = errors.New("session not found")

// InMemoryStore is a volatile SessionStore implementation storing
// sessions in a process local map. It is safe for concurrent access. Each
// returned session is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create allocates a new session for the application/user pair and
// returns a clone of it. The store assigns the id.
func (s *InMemoryStore) Create(appName, userID string) (*core.Session, error) {
	if appName == "" || userID == "" {
		return nil, fmt.Errorf("session: app name and user id are required")
	}

	sess := core.NewSession(core.NewID(), appName, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess

	return sess.Clone(), nil
}

// Get returns a clone of an existing session or ErrNotFound.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	return sess.Clone(), nil
}

// AppendEvent adds an event to the history of an existing session.
func (s *InMemoryStore) AppendEvent(sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	sess.AddEvent(ev)

	return nil
}

// ApplyDelta merges a key/value delta into the session state.
func (s *InMemoryStore) ApplyDelta(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	sess.ApplyStateDelta(delta)

	return nil
}

// List returns the ids of all sessions owned by the application/user pair.
func (s *InMemoryStore) List(appName, userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, sess := range s.sessions {
		if sess.AppName == appName && sess.UserID == userID {
			ids = append(ids, id)
		}
	}

	return ids
}

// Delete removes a session or returns ErrNotFound.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	delete(s.sessions, sessionID)

	return nil
}
