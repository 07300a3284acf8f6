package game

import "sync"

// SessionStore maps a user ID to that user's only session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]Session)}
}

// Get returns the user's session.
func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Has reports whether the user owns a session.
func (s *SessionStore) Has(userID int64) bool {
	_, ok := s.Get(userID)
	return ok
}

// Claim stores sess only if the user has no session yet.
func (s *SessionStore) Claim(userID int64, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		return ErrSessionConflict
	}
	s.sessions[userID] = sess
	return nil
}

// Replace swaps the user's existing session for its successor. It is a no-op
// when the user has no session, so a session removed concurrently stays removed.
func (s *SessionStore) Replace(userID int64, sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	s.sessions[userID] = sess
	return true
}

// Pop removes and returns the user's session.
func (s *SessionStore) Pop(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return sess, ok
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Users returns the IDs of users that own a session.
func (s *SessionStore) Users() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}
