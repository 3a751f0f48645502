package app

import (
	"sync"

	"trivia-orchestrator/internal/domain"
)

// Session is the in-process hub for one live quiz: the connected-actor
// registry and the event fan-out. All durable session state lives in the
// SessionStore; the hub only carries what cannot outlive the process.
type Session struct {
	quizID string

	// dispatchMu serializes command handling so every command runs to
	// completion before the next one observes state.
	dispatchMu sync.Mutex

	mu          sync.RWMutex
	actors      map[string]domain.Actor
	subscribers map[chan domain.Event]struct{}
}

func newSession(quizID string) *Session {
	return &Session{
		quizID:      quizID,
		actors:      make(map[string]domain.Actor),
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

func (s *Session) register(actor domain.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[actor.ParticipantID] = actor
}

func (s *Session) unregister(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actors, participantID)
}

func (s *Session) actor(participantID string) (domain.Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[participantID]
	return a, ok
}

func (s *Session) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actors) == 0 && len(s.subscribers) == 0
}

// subscribe returns a buffered channel of session events. The caller must
// invoke cancel to avoid leaks.
func (s *Session) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcast fans an event out to every subscriber. Slow clients drop their
// oldest buffered event rather than blocking the session.
func (s *Session) broadcast(ev domain.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// Registry owns the keyed map of live sessions with explicit lifecycle:
// created on first use, dropped once the last client disconnects.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) GetOrCreate(quizID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[quizID]; ok {
		return s
	}
	s := newSession(quizID)
	r.sessions[quizID] = s
	return s
}

func (r *Registry) Get(quizID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[quizID]
	return s, ok
}

func (r *Registry) DeleteIfEmpty(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[quizID]; ok && s.isEmpty() {
		delete(r.sessions, quizID)
	}
}
