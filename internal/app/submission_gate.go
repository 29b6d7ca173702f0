package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"quiz-play-service/internal/domain"
)

// ResultReporter accepts a finished attempt and returns the server's verdict.
type ResultReporter interface {
	Submit(ctx context.Context, submission domain.Submission) (domain.SubmitResult, error)
}

// SubmissionGate lets exactly one finish request through per attempt and keeps
// the claimed payload so a failed send can be retried without re-claiming.
type SubmissionGate struct {
	claimed atomic.Bool
	sending sync.Mutex

	mu        sync.Mutex
	payload   *domain.Submission
	result    *domain.SubmitResult
	sendCount int
}

func NewSubmissionGate() *SubmissionGate {
	return &SubmissionGate{}
}

// Claim returns true for the first caller only.
func (g *SubmissionGate) Claim() bool {
	return g.claimed.CompareAndSwap(false, true)
}

// Claimed reports whether a submission has been claimed.
func (g *SubmissionGate) Claimed() bool {
	return g.claimed.Load()
}

// BuildPayload assembles one entry per quiz question, in quiz order, and keeps it.
// Questions without a selection get an empty choice list.
func (g *SubmissionGate) BuildPayload(quiz domain.Quiz, answers domain.AnswerSelection, elapsedSeconds int) domain.Submission {
	entries := make([]domain.SubmissionEntry, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		choiceIDs := answers[question.ID]
		ids := make([]string, len(choiceIDs))
		copy(ids, choiceIDs)
		entries = append(entries, domain.SubmissionEntry{
			QuestionID: question.ID,
			ChoiceIDs:  ids,
		})
	}
	submission := domain.Submission{
		QuizID:         quiz.ID,
		Answers:        entries,
		ElapsedSeconds: elapsedSeconds,
	}

	g.mu.Lock()
	g.payload = &submission
	g.mu.Unlock()
	return submission
}

// Payload returns the built submission, if any.
func (g *SubmissionGate) Payload() (domain.Submission, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.payload == nil {
		return domain.Submission{}, false
	}
	return *g.payload, true
}

// Send hands the kept payload to the reporter. Once the reporter has accepted
// it, later calls return the same result without sending again.
func (g *SubmissionGate) Send(ctx context.Context, reporter ResultReporter) (domain.SubmitResult, error) {
	g.sending.Lock()
	defer g.sending.Unlock()

	g.mu.Lock()
	if g.result != nil {
		result := *g.result
		g.mu.Unlock()
		return result, nil
	}
	if !g.claimed.Load() || g.payload == nil {
		g.mu.Unlock()
		return domain.SubmitResult{}, domain.ErrNotRetryable
	}
	payload := *g.payload
	g.sendCount++
	g.mu.Unlock()

	result, err := reporter.Submit(ctx, payload)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("%w: %w", domain.ErrSubmitFailed, err)
	}

	g.mu.Lock()
	g.result = &result
	g.mu.Unlock()
	return result, nil
}

// Sends is how many times the payload was handed to a reporter.
func (g *SubmissionGate) Sends() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sendCount
}
