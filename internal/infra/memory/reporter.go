package memory

import (
	"context"
	"sync"

	"quiz-play-service/internal/domain"
)

// RecordingReporter keeps every submission it receives. It does no scoring;
// it stands in for the quiz API when none is configured, and in tests.
type RecordingReporter struct {
	mu          sync.Mutex
	submissions []domain.Submission
	failures    []error
	notify      chan domain.Submission
}

func NewRecordingReporter() *RecordingReporter {
	return &RecordingReporter{notify: make(chan domain.Submission, 16)}
}

// FailNext makes the next call to Submit return err.
func (r *RecordingReporter) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *RecordingReporter) Submit(ctx context.Context, submission domain.Submission) (domain.SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SubmitResult{}, err
	}

	r.mu.Lock()
	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		r.mu.Unlock()
		return domain.SubmitResult{}, err
	}
	r.submissions = append(r.submissions, submission)
	r.mu.Unlock()

	select {
	case r.notify <- submission:
	default:
	}
	return domain.SubmitResult{
		QuizID:         submission.QuizID,
		ElapsedSeconds: submission.ElapsedSeconds,
		Message:        "submission recorded",
	}, nil
}

// Submissions returns what was accepted so far.
func (r *RecordingReporter) Submissions() []domain.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Submission, len(r.submissions))
	copy(out, r.submissions)
	return out
}

// Received delivers accepted submissions as they arrive.
func (r *RecordingReporter) Received() <-chan domain.Submission {
	return r.notify
}
