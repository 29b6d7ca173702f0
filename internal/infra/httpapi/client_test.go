package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-play-service/internal/domain"
)

func TestLoadQuizDecodesEnvelopeAndSendsToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/quiz/abc", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"quiz":{"id":"abc","naziv":"Capitals","trajanje_sekunde":30,
			"pitanja":[{"id":1,"tekst":"Capital of France?","bodovi":2,"odgovori":[{"id":"a","tekst":"Paris"},{"id":"b","tekst":"Rome"}]}]}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Token: "secret"})
	quiz, err := client.LoadQuiz(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Capitals", quiz.Title)
	assert.Equal(t, 30, quiz.DurationSeconds)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, 1, quiz.Questions[0].ID)
	assert.Equal(t, "b", quiz.Questions[0].Choices[1].ID)
}

func TestLoadQuizClassifiesStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		body   string
		want   error
	}{
		{status: http.StatusNotFound, body: `{"success":false}`, want: domain.ErrQuizNotFound},
		{status: http.StatusForbidden, body: `{"success":false}`, want: domain.ErrQuizNotPlayable},
		{status: http.StatusBadGateway, body: `oops`, want: domain.ErrTransport},
		{status: http.StatusOK, body: `not json`, want: domain.ErrTransport},
		{status: http.StatusOK, body: `{"success":true}`, want: domain.ErrTransport},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := NewClient(Config{BaseURL: srv.URL}).LoadQuiz(context.Background(), "q")
		srv.Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, tc.want, "status %d body %q", tc.status, tc.body)
	}
}

func TestLoadQuizRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"quiz":{"naziv":"Retry","trajanje_sekunde":5,"pitanja":[]}}`))
	}))
	defer srv.Close()

	quiz, err := NewClient(Config{BaseURL: srv.URL, Retries: 3}).LoadQuiz(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", quiz.ID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestSubmitPostsPayloadOnce(t *testing.T) {
	t.Parallel()

	var (
		calls atomic.Int32
		got   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/quiz/abc/submit", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"message":"Odgovori primljeni.","result":{"quiz_id":"abc","ukupno_bodova":2,"maksimalno_bodova":3,"procenat":66.67}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Retries: 5, Timeout: time.Second})
	result, err := client.Submit(context.Background(), domain.Submission{
		QuizID: "abc",
		Answers: []domain.SubmissionEntry{
			{QuestionID: 1, ChoiceIDs: []string{"a"}},
			{QuestionID: 2, ChoiceIDs: []string{}},
		},
		ElapsedSeconds: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 3, result.MaxScore)
	assert.Equal(t, "Odgovori primljeni.", result.Message)
	assert.EqualValues(t, 1, calls.Load())

	assert.EqualValues(t, 12, got["vrijeme_utroseno_sekunde"])
	answers, ok := got["odgovori"].([]any)
	require.True(t, ok)
	require.Len(t, answers, 2)
	second := answers[1].(map[string]any)
	assert.EqualValues(t, 2, second["pitanje_id"])
	assert.Equal(t, []any{}, second["odgovor_ids"])
	_, leaked := got["QuizID"]
	assert.False(t, leaked)
}

func TestSubmitRejectedIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"db down"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, Retries: 5}).Submit(context.Background(), domain.Submission{QuizID: "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.EqualValues(t, 1, calls.Load())
}
