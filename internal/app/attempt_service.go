package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quiz-play-service/internal/domain"
)

// AttemptRepository abstracts where running attempts are registered (in-memory, Redis, etc).
type AttemptRepository interface {
	Put(engine *SessionEngine)
	Get(attemptID string) (*SessionEngine, bool)
	Delete(attemptID string)
}

// AttemptStatus is a read-only view of one attempt.
type AttemptStatus struct {
	ID               string                 `json:"id"`
	QuizID           string                 `json:"quizId"`
	State            domain.SessionState    `json:"state"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	ElapsedSeconds   int                    `json:"elapsedSeconds"`
	Answers          domain.AnswerSelection `json:"answers"`
	Trigger          domain.FinishTrigger   `json:"trigger,omitempty"`
	Result           *domain.SubmitResult   `json:"result,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// AttemptService starts attempts and routes player actions to them by id.
type AttemptService struct {
	attempts  AttemptRepository
	quizzes   QuizLoader
	reporter  ResultReporter
	retention time.Duration
	opts      EngineOptions
	newID     func() string
}

// NewAttemptService wires the attempt registry to quiz content and the result reporter.
// Finished attempts stay addressable for retention before they are dropped.
func NewAttemptService(attempts AttemptRepository, quizzes QuizLoader, reporter ResultReporter, retention time.Duration, opts EngineOptions) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		reporter:  reporter,
		retention: retention,
		opts:      opts,
		newID:     func() string { return uuid.NewString() },
	}
}

// Start creates and starts a new attempt at quizID. The listener, when not nil,
// replaces the service-wide one for this attempt.
func (s *AttemptService) Start(ctx context.Context, quizID string, listener Listener) (*SessionEngine, error) {
	opts := s.opts
	if listener != nil {
		opts.Listener = listener
	}
	engine := NewSessionEngine(s.newID(), quizID, s.quizzes, s.reporter, opts)
	s.attempts.Put(engine)
	if err := engine.Start(ctx); err != nil {
		s.attempts.Delete(engine.ID())
		return nil, err
	}

	go s.evictWhenDone(engine)
	return engine, nil
}

// Toggle flips a choice in a running attempt.
func (s *AttemptService) Toggle(attemptID string, questionID int, choiceID string) error {
	engine, ok := s.attempts.Get(attemptID)
	if !ok {
		return domain.ErrAttemptNotFound
	}
	engine.Toggle(questionID, choiceID)
	return nil
}

// Finish asks a running attempt to submit.
func (s *AttemptService) Finish(attemptID string) error {
	engine, ok := s.attempts.Get(attemptID)
	if !ok {
		return domain.ErrAttemptNotFound
	}
	engine.Finish()
	return nil
}

// Retry re-sends the submission of an attempt whose send failed.
func (s *AttemptService) Retry(ctx context.Context, attemptID string) (domain.SubmitResult, error) {
	engine, ok := s.attempts.Get(attemptID)
	if !ok {
		return domain.SubmitResult{}, domain.ErrAttemptNotFound
	}
	return engine.Retry(ctx)
}

// Status describes an attempt.
func (s *AttemptService) Status(attemptID string) (AttemptStatus, error) {
	engine, ok := s.attempts.Get(attemptID)
	if !ok {
		return AttemptStatus{}, domain.ErrAttemptNotFound
	}
	return StatusOf(engine), nil
}

// StatusOf builds the read-only view of an engine.
func StatusOf(engine *SessionEngine) AttemptStatus {
	status := AttemptStatus{
		ID:               engine.ID(),
		QuizID:           engine.QuizID(),
		State:            engine.State(),
		RemainingSeconds: engine.RemainingSeconds(),
		ElapsedSeconds:   engine.ElapsedSeconds(),
		Answers:          engine.Answers(),
		Trigger:          engine.Trigger(),
	}
	if result, ok := engine.Result(); ok {
		status.Result = &result
	}
	if err := engine.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

func (s *AttemptService) evictWhenDone(engine *SessionEngine) {
	<-engine.Done()
	if s.retention <= 0 {
		s.attempts.Delete(engine.ID())
		return
	}
	time.AfterFunc(s.retention, func() {
		s.attempts.Delete(engine.ID())
	})
}
