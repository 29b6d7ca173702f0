package postgres

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-play-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres. Only approved quizzes are returned.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		status string
		raw    []byte
	)
	err := l.pool.QueryRow(ctx, `SELECT status, data FROM quizzes WHERE id=$1`, quizID).Scan(&status, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: load quiz: %w", domain.ErrTransport, err)
	}
	if domain.QuizStatus(status) != domain.QuizStatusApproved {
		return domain.Quiz{}, fmt.Errorf("load quiz %s (status %s): %w", quizID, status, domain.ErrQuizNotPlayable)
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: unmarshal quiz: %w", domain.ErrTransport, err)
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return quiz, nil
}
