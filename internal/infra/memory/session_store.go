package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// SessionStore is an in-memory implementation of app.SessionStore. Values are
// JSON round-tripped so behavior matches the Redis-backed store.
type SessionStore struct {
	mu     sync.RWMutex
	clock  func() time.Time
	fields map[string]map[string]entry
}

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock allows deterministic TTL expiry in tests.
func NewSessionStoreWithClock(clock func() time.Time) *SessionStore {
	return &SessionStore{
		clock:  clock,
		fields: make(map[string]map[string]entry),
	}
}

func (s *SessionStore) Set(_ context.Context, quizID, field string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.fields[quizID]
	if !ok {
		session = make(map[string]entry)
		s.fields[quizID] = session
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	session[field] = e
	return nil
}

func (s *SessionStore) Get(_ context.Context, quizID, field string, dest any) (bool, error) {
	s.mu.RLock()
	session, ok := s.fields[quizID]
	if !ok {
		s.mu.RUnlock()
		return false, nil
	}
	e, ok := session[field]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.fields[quizID], field)
		s.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SessionStore) Delete(_ context.Context, quizID, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.fields[quizID]; ok {
		delete(session, field)
	}
	return nil
}

func (s *SessionStore) Clear(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fields, quizID)
	return nil
}
