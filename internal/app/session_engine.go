package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"quiz-play-service/internal/domain"
)

const eventQueueSize = 64

// QuizLoader fetches the content of a quiz. Errors should wrap
// domain.ErrQuizNotFound or domain.ErrQuizNotPlayable where they apply;
// anything else is treated as a transport failure.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Listener is told about state changes and display ticks. Calls are made from
// the engine goroutine, one at a time.
type Listener interface {
	StateChanged(attemptID string, state domain.SessionState)
	Tick(attemptID string, remainingSeconds int)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) StateChanged(string, domain.SessionState) {}
func (NopListener) Tick(string, int)                         {}

// EngineOptions holds the collaborators of a SessionEngine that have defaults.
type EngineOptions struct {
	Listener    Listener
	Now         func() time.Time
	Timers      Timers
	TickCadence time.Duration
}

// input carries an event and whatever data it needs into the state machine.
type input struct {
	ev         event
	quiz       domain.Quiz
	questionID int
	choiceID   string
	remaining  int
	trigger    domain.FinishTrigger
	result     domain.SubmitResult
	err        error
}

// SessionEngine owns one timed attempt at a quiz. All state changes happen on
// a single goroutine that drains the event queue; public methods only enqueue.
type SessionEngine struct {
	id       string
	quizID   string
	loader   QuizLoader
	reporter ResultReporter
	listener Listener
	now      func() time.Time
	gate     *SubmissionGate

	events  chan func()
	done    chan struct{}
	started atomic.Bool
	ctx     context.Context

	mu       sync.RWMutex
	state    domain.SessionState
	quiz     *domain.Quiz
	answers  *AnswerSet
	clock    *SessionClock
	trigger  domain.FinishTrigger
	result   *domain.SubmitResult
	err      error
	finished time.Time
}

func NewSessionEngine(attemptID, quizID string, loader QuizLoader, reporter ResultReporter, opts EngineOptions) *SessionEngine {
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timers == nil {
		opts.Timers = SystemTimers{}
	}

	e := &SessionEngine{
		id:       attemptID,
		quizID:   quizID,
		loader:   loader,
		reporter: reporter,
		listener: opts.Listener,
		now:      opts.Now,
		gate:     NewSubmissionGate(),
		events:   make(chan func(), eventQueueSize),
		done:     make(chan struct{}),
		state:    domain.StateLoading,
	}
	sched := queueScheduler{timers: opts.Timers, post: e.post}
	e.clock = NewSessionClock(sched, opts.Now, opts.TickCadence)
	return e
}

// ID returns the attempt identifier.
func (e *SessionEngine) ID() string { return e.id }

// QuizID returns the identifier of the quiz being played.
func (e *SessionEngine) QuizID() string { return e.quizID }

// Start loads the quiz and runs the attempt until it completes or fails.
// Cancelling ctx before a submission is claimed abandons the attempt.
func (e *SessionEngine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return domain.ErrAlreadyStarted
	}
	e.ctx = ctx
	go e.load(ctx)
	go e.run(ctx)
	return nil
}

// Toggle flips one choice. Ignored outside the active state.
func (e *SessionEngine) Toggle(questionID int, choiceID string) {
	e.post(func() {
		e.dispatch(input{ev: evToggle, questionID: questionID, choiceID: choiceID})
	})
}

// Finish requests a manual submission. Ignored outside the active state and
// after the clock has already claimed the submission.
func (e *SessionEngine) Finish() {
	e.post(func() {
		e.dispatch(input{ev: evFinish, trigger: domain.TriggerManual})
	})
}

// Retry re-sends the claimed submission after a failed send. The attempt stays
// failed; the result of a successful retry is available from Result, and
// retrying again returns that result without sending.
func (e *SessionEngine) Retry(ctx context.Context) (domain.SubmitResult, error) {
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()

	// A failed attempt with a claimed submission can only have failed while sending.
	if state != domain.StateFailed || !e.gate.Claimed() {
		return domain.SubmitResult{}, domain.ErrNotRetryable
	}

	result, err := e.gate.Send(ctx, e.reporter)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.err = err
		return domain.SubmitResult{}, err
	}
	e.result = &result
	e.err = nil
	log.Printf("attempt %s: retried submission accepted", e.id)
	return result, nil
}

// Done is closed once the attempt reaches a terminal state.
func (e *SessionEngine) Done() <-chan struct{} { return e.done }

// State returns the current lifecycle state.
func (e *SessionEngine) State() domain.SessionState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Err returns the error that failed the attempt, if any.
func (e *SessionEngine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Result returns the reporter's verdict once a submission was accepted.
func (e *SessionEngine) Result() (domain.SubmitResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.result == nil {
		return domain.SubmitResult{}, false
	}
	return *e.result, true
}

// Quiz returns the loaded quiz content.
func (e *SessionEngine) Quiz() (domain.Quiz, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.quiz == nil {
		return domain.Quiz{}, false
	}
	return *e.quiz, true
}

// Submission returns the claimed payload, kept for retries after a failed send.
func (e *SessionEngine) Submission() (domain.Submission, bool) {
	return e.gate.Payload()
}

// Answers returns a copy of the current selection. After the attempt is
// finished it returns the answers that were submitted.
func (e *SessionEngine) Answers() domain.AnswerSelection {
	e.mu.RLock()
	answers := e.answers
	e.mu.RUnlock()
	if answers != nil {
		return answers.Snapshot()
	}

	out := domain.AnswerSelection{}
	if payload, ok := e.gate.Payload(); ok {
		for _, entry := range payload.Answers {
			if len(entry.ChoiceIDs) > 0 {
				out[entry.QuestionID] = entry.ChoiceIDs
			}
		}
	}
	return out
}

// RemainingSeconds is the countdown shown to the player.
func (e *SessionEngine) RemainingSeconds() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != domain.StateActive {
		return 0
	}
	return e.clock.RemainingSeconds()
}

// ElapsedSeconds is the time spent so far, or the time stamped on the submission.
func (e *SessionEngine) ElapsedSeconds() int {
	if payload, ok := e.gate.Payload(); ok {
		return payload.ElapsedSeconds
	}
	return e.clock.ElapsedSeconds()
}

// Trigger reports what finished the attempt.
func (e *SessionEngine) Trigger() domain.FinishTrigger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trigger
}

// FinishedAt is when the attempt reached a terminal state.
func (e *SessionEngine) FinishedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.finished
}

func (e *SessionEngine) post(fn func()) {
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.events <- fn:
	case <-e.done:
	}
}

func (e *SessionEngine) load(ctx context.Context) {
	quiz, err := e.loader.LoadQuiz(ctx, e.quizID)
	if err == nil {
		err = quiz.Validate()
	}
	if err != nil {
		err = classifyLoadError(err)
		e.post(func() { e.dispatch(input{ev: evLoadFailed, err: err}) })
		return
	}
	e.post(func() { e.dispatch(input{ev: evLoaded, quiz: quiz}) })
}

func (e *SessionEngine) run(ctx context.Context) {
	defer close(e.done)

	cancelled := ctx.Done()
	for {
		select {
		case fn := <-e.events:
			fn()
		case <-cancelled:
			cancelled = nil
			e.dispatch(input{ev: evAbandon, err: domain.ErrAttemptAbandoned})
		}
		if e.State().Terminal() {
			return
		}
	}
}

// dispatch runs one event through the state machine. It is only called on the
// engine goroutine.
func (e *SessionEngine) dispatch(in input) {
	e.mu.Lock()
	from := e.state
	to, effects := step(from, in.ev)
	if effects == nil {
		e.mu.Unlock()
		return
	}

	var notify []func()
	for _, eff := range effects {
		switch eff {
		case effClaim:
			// The claim decides the race between a manual finish and expiry.
			if !e.gate.Claim() {
				e.mu.Unlock()
				return
			}
			e.trigger = in.trigger
		case effStartClock:
			quiz := in.quiz
			e.quiz = &quiz
			e.answers = NewAnswerSet()
			if err := e.clock.Start(quiz.DurationSeconds, e.onTick, e.onExpire); err != nil {
				to = domain.StateFailed
				e.err = fmt.Errorf("%w: %w", domain.ErrQuizNotPlayable, err)
				e.releaseLocked()
			}
		case effApplyToggle:
			e.answers.Toggle(in.questionID, in.choiceID)
		case effPublishTick:
			remaining := in.remaining
			notify = append(notify, func() { e.listener.Tick(e.id, remaining) })
		case effStopClock:
			e.clock.Stop()
		case effSend:
			// Snapshot before any suspension point so late toggles cannot leak in.
			e.gate.BuildPayload(*e.quiz, e.answers.Snapshot(), e.clock.ElapsedSeconds())
			go e.send()
		case effRecordResult:
			result := in.result
			e.result = &result
		case effRecordError:
			e.err = in.err
		case effRelease:
			e.releaseLocked()
		}
	}
	e.state = to
	e.mu.Unlock()

	if to != from {
		e.logTransition(from, to)
		notify = append(notify, func() { e.listener.StateChanged(e.id, to) })
	}
	for _, fn := range notify {
		fn()
	}
}

// releaseLocked drops per-attempt mutable state once the attempt is over.
func (e *SessionEngine) releaseLocked() {
	e.answers = nil
	e.finished = e.now()
}

func (e *SessionEngine) onTick(remainingSeconds int) {
	e.dispatch(input{ev: evTick, remaining: remainingSeconds})
}

func (e *SessionEngine) onExpire() {
	e.dispatch(input{ev: evExpire, trigger: domain.TriggerExpiry})
}

func (e *SessionEngine) send() {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// A claimed submission is delivered even if the owner goes away meanwhile.
	result, err := e.gate.Send(context.WithoutCancel(ctx), e.reporter)
	if err != nil {
		e.post(func() { e.dispatch(input{ev: evReportFailed, err: err}) })
		return
	}
	e.post(func() { e.dispatch(input{ev: evReported, result: result}) })
}

func (e *SessionEngine) logTransition(from, to domain.SessionState) {
	switch to {
	case domain.StateActive:
		quiz, _ := e.Quiz()
		log.Printf("attempt %s: quiz %s loaded, countdown of %s started", e.id, e.quizID, quiz.Duration())
	case domain.StateFinishing:
		log.Printf("attempt %s: submission claimed (%s)", e.id, e.Trigger())
	case domain.StateCompleted:
		log.Printf("attempt %s: submission accepted", e.id)
	case domain.StateFailed:
		log.Printf("attempt %s: failed while %s: %v", e.id, from, e.Err())
	}
}

func classifyLoadError(err error) error {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuizNotPlayable),
		errors.Is(err, domain.ErrTransport):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
}
