package app

import (
	"sync"
	"time"
)

type timerKey struct {
	quizID     string
	questionID string
}

// scheduler tracks cancellable per-question tasks (auto-confirm deadlines,
// bonus-return pacing). Scheduling a key replaces any task already pending
// for it; a fired task that lost the race to a cancel is the callback's
// problem and must be a no-op there.
type scheduler struct {
	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

func newScheduler() *scheduler {
	return &scheduler{timers: make(map[timerKey]*time.Timer)}
}

func (s *scheduler) Schedule(quizID, questionID string, d time.Duration, fn func()) {
	key := timerKey{quizID: quizID, questionID: questionID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

func (s *scheduler) Cancel(quizID, questionID string) {
	key := timerKey{quizID: quizID, questionID: questionID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// CancelSession stops every outstanding task for the quiz. Called on round
// completion and abort so no stale callback can touch an advanced session.
func (s *scheduler) CancelSession(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		if key.quizID == quizID {
			t.Stop()
			delete(s.timers, key)
		}
	}
}
