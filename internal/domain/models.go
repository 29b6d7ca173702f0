package domain

import "time"

// QuizStatus is the moderation status of a quiz. Only approved quizzes can be played.
type QuizStatus string

const (
	QuizStatusPending  QuizStatus = "PENDING"
	QuizStatusApproved QuizStatus = "APPROVED"
	QuizStatusRejected QuizStatus = "REJECTED"
)

// Choice is a selectable answer. It never carries correctness.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"tekst"`
}

// Question is a multi-select question.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"tekst"`
	Points  int      `json:"bodovi"`
	Choices []Choice `json:"odgovori"`
}

// Quiz is the immutable content of one playable quiz.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"naziv"`
	DurationSeconds int        `json:"trajanje_sekunde"`
	Questions       []Question `json:"pitanja"`
}

// Duration returns the configured time limit.
func (q Quiz) Duration() time.Duration {
	return time.Duration(q.DurationSeconds) * time.Second
}

// Validate reports ErrQuizNotPlayable when the content cannot be played safely.
func (q Quiz) Validate() error {
	if q.DurationSeconds < 1 {
		return ErrQuizNotPlayable
	}
	seenQuestions := make(map[int]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if _, dup := seenQuestions[question.ID]; dup {
			return ErrQuizNotPlayable
		}
		seenQuestions[question.ID] = struct{}{}

		seenChoices := make(map[string]struct{}, len(question.Choices))
		for _, choice := range question.Choices {
			if _, dup := seenChoices[choice.ID]; dup {
				return ErrQuizNotPlayable
			}
			seenChoices[choice.ID] = struct{}{}
		}
	}
	return nil
}

// AnswerSelection maps a question id to the chosen choice ids. Unanswered questions are absent.
type AnswerSelection map[int][]string

// SubmissionEntry is the answer to one question in a submission.
type SubmissionEntry struct {
	QuestionID int      `json:"pitanje_id"`
	ChoiceIDs  []string `json:"odgovor_ids"`
}

// Submission is the payload of a finished attempt.
type Submission struct {
	QuizID         string            `json:"-"`
	Answers        []SubmissionEntry `json:"odgovori"`
	ElapsedSeconds int               `json:"vrijeme_utroseno_sekunde"`
}

// SubmitResult is the server-computed outcome, handed on untouched.
type SubmitResult struct {
	QuizID         string  `json:"quiz_id"`
	QuizTitle      string  `json:"quiz_naziv,omitempty"`
	Score          int     `json:"ukupno_bodova"`
	MaxScore       int     `json:"maksimalno_bodova"`
	Percent        float64 `json:"procenat"`
	ElapsedSeconds int     `json:"vrijeme_utroseno_sekunde"`
	Message        string  `json:"message,omitempty"`
}
