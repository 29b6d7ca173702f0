package memory

import (
	"sync"

	"quiz-play-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*app.SessionEngine
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*app.SessionEngine),
	}
}

func (s *AttemptStore) Put(engine *app.SessionEngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[engine.ID()] = engine
}

func (s *AttemptStore) Get(attemptID string) (*app.SessionEngine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engine, ok := s.attempts[attemptID]
	return engine, ok
}

func (s *AttemptStore) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
}

// Len reports how many attempts are registered.
func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}
