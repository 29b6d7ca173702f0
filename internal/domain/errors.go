package domain

import "errors"

var (
	// ErrQuizNotFound indicates there is no quiz with the requested identifier.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotPlayable indicates the quiz exists but is not approved, or its content is unusable.
	ErrQuizNotPlayable = errors.New("quiz not playable")
	// ErrTransport covers network and deserialization failures while loading a quiz.
	ErrTransport = errors.New("quiz transport error")
	// ErrSubmitFailed is returned when the result reporter rejected or never received a submission.
	ErrSubmitFailed = errors.New("submission failed")
	// ErrAttemptNotFound is returned when an attempt id is unknown to the registry.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptAbandoned marks an attempt whose owner went away before finishing.
	ErrAttemptAbandoned = errors.New("attempt abandoned")
	// ErrNotRetryable is returned when a retry is requested for an attempt without a failed submission.
	ErrNotRetryable = errors.New("attempt has no failed submission to retry")
	// ErrAlreadyStarted is returned when an engine is started twice.
	ErrAlreadyStarted = errors.New("attempt already started")
)
