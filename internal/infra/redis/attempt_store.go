package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-play-service/internal/app"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Notes:
//   - Engines live in a local map; an attempt's clock and gate only exist in
//     the process that runs it.
//   - Redis marks attempt liveness as quiz:attempt:{id} -> quizID, so other
//     instances can tell an attempt exists and which quiz it belongs to.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.SessionEngine
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.SessionEngine),
	}
}

func (s *AttemptStore) Put(engine *app.SessionEngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[engine.ID()] = engine
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(engine.ID()), engine.QuizID(), s.ttl).Err()
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
	_ = s.client.Del(context.Background(), s.key(attemptID)).Err()
}

// QuizOf looks up the quiz of an attempt registered by any instance.
func (s *AttemptStore) QuizOf(ctx context.Context, attemptID string) (string, bool) {
	quizID, err := s.client.Get(ctx, s.key(attemptID)).Result()
	if err != nil {
		return "", false
	}
	return quizID, true
}

func (s *AttemptStore) key(attemptID string) string {
	return "quiz:attempt:" + attemptID
}
