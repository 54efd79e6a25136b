package rag

import "sync"

// SessionStore keeps per-session query history. The store is owned by the
// caller and passed in explicitly, so its lifecycle is independent of the
// process and tests can substitute a fake.
type SessionStore interface {
	Append(sessionID string, result *Result)
	History(sessionID string) []*Result
	Reset(sessionID string)
}

// MemorySessionStore is an in-memory SessionStore safe for concurrent use.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]*Result
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]*Result)}
}

func (s *MemorySessionStore) Append(sessionID string, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], result)
}

func (s *MemorySessionStore) History(sessionID string) []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[sessionID]
	out := make([]*Result, len(history))
	copy(out, history)
	return out
}

func (s *MemorySessionStore) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
