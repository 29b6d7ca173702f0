package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-play-service/internal/app"
)

func TestAttemptStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewAttemptStore(client, time.Minute)

	engine := app.NewSessionEngine("attempt-1", "quiz-1", nil, nil, app.EngineOptions{})
	store.Put(engine)
	if !mr.Exists("quiz:attempt:attempt-1") {
		t.Fatalf("expected redis key to be set")
	}
	if quizID, ok := store.QuizOf(context.Background(), "attempt-1"); !ok || quizID != "quiz-1" {
		t.Fatalf("expected quiz-1 for attempt, got %q %v", quizID, ok)
	}
	if got, ok := store.Get("attempt-1"); !ok || got != engine {
		t.Fatalf("expected local engine")
	}

	store.Delete("attempt-1")
	if mr.Exists("quiz:attempt:attempt-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("attempt-1"); ok {
		t.Fatalf("expected engine removed")
	}
}
