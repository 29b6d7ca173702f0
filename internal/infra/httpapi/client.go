package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"quiz-play-service/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyInError = 256
)

// Config describes how to reach the quiz API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Retries applies to quiz loads only; a submission is never resent automatically.
	Retries int
}

// Client talks to the quiz REST API. It loads quiz content and reports finished attempts.
type Client struct {
	cfg  Config
	http *req.Client
}

type envelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Quiz    *domain.Quiz         `json:"quiz"`
	Result  *domain.SubmitResult `json:"result"`
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := req.C().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetCommonHeader("Accept", "application/json")
	if cfg.Token != "" {
		httpClient = httpClient.SetCommonBearerAuthToken(cfg.Token)
	}
	return &Client{cfg: cfg, http: httpClient}
}

// LoadQuiz fetches GET /quiz/{id}. 404 maps to ErrQuizNotFound, 403 to ErrQuizNotPlayable;
// everything else that is not a decodable 200 is a transport error.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	request := c.http.R().SetContext(ctx)
	if c.cfg.Retries > 0 {
		request = request.
			SetRetryCount(c.cfg.Retries).
			SetRetryBackoffInterval(50*time.Millisecond, time.Second).
			SetRetryCondition(func(resp *req.Response, err error) bool {
				return err != nil || resp.GetStatusCode() >= http.StatusInternalServerError
			}).
			SetRetryHook(func(resp *req.Response, err error) {
				if err != nil {
					log.Printf("load quiz %s failed, retrying: %v", quizID, err)
				} else {
					log.Printf("load quiz %s failed with status %d, retrying", quizID, resp.GetStatusCode())
				}
			})
	}

	resp, err := request.SetPathParam("id", quizID).Get("/quiz/{id}")
	if err != nil {
		return domain.Quiz{}, multierror.Append(domain.ErrTransport, errors.Wrapf(err, "failed to get quiz %v", quizID))
	}

	switch resp.GetStatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Quiz{}, errors.Wrapf(domain.ErrQuizNotFound, "quiz %v", quizID)
	case http.StatusForbidden:
		return domain.Quiz{}, errors.Wrapf(domain.ErrQuizNotPlayable, "quiz %v", quizID)
	default:
		return domain.Quiz{}, statusError(domain.ErrTransport, resp, "get quiz "+quizID)
	}

	body, err := c.decode(ctx, resp)
	if err != nil {
		return domain.Quiz{}, multierror.Append(domain.ErrTransport, errors.Wrapf(err, "failed to decode quiz %v", quizID))
	}
	if body.Quiz == nil {
		return domain.Quiz{}, errors.Wrapf(domain.ErrTransport, "quiz %v: response has no quiz", quizID)
	}
	quiz := *body.Quiz
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return quiz, nil
}

// Submit posts the submission to POST /quiz/{id}/submit and returns the server-computed result.
func (c *Client) Submit(ctx context.Context, submission domain.Submission) (domain.SubmitResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", submission.QuizID).
		SetBodyJsonMarshal(submission).
		Post("/quiz/{id}/submit")
	if err != nil {
		return domain.SubmitResult{}, errors.Wrapf(err, "failed to submit quiz %v", submission.QuizID)
	}
	if resp.GetStatusCode() != http.StatusOK {
		return domain.SubmitResult{}, statusError(nil, resp, "submit quiz "+submission.QuizID)
	}

	body, err := c.decode(ctx, resp)
	if err != nil {
		return domain.SubmitResult{}, errors.Wrapf(err, "failed to decode result of quiz %v", submission.QuizID)
	}
	if body.Result == nil {
		return domain.SubmitResult{}, errors.Errorf("submit quiz %v: response has no result", submission.QuizID)
	}
	result := *body.Result
	if result.Message == "" {
		result.Message = body.Message
	}
	return result, nil
}

func (c *Client) decode(ctx context.Context, resp *req.Response) (envelope, error) {
	var body envelope
	data, err := resp.ToBytes()
	if err != nil {
		return body, errors.Wrap(err, "failed to read body")
	}
	if err := json.UnmarshalContext(ctx, data, &body); err != nil {
		return body, errors.Wrapf(err, "failed to unmarshal body %v", truncate(string(data)))
	}
	return body, nil
}

// statusError describes an unexpected response. kind, when set, is kept in the chain for errors.Is.
func statusError(kind error, resp *req.Response, op string) error {
	body, bErr := resp.ToString()
	err := errors.Errorf("%v failed with status %v: %v", op, resp.GetStatusCode(), truncate(body))
	if kind != nil {
		err = errors.Wrap(kind, err.Error())
	}
	return multierror.Append(err, bErr).ErrorOrNil()
}

func truncate(s string) string {
	if len(s) <= maxBodyInError {
		return s
	}
	return fmt.Sprintf("%s...", s[:maxBodyInError])
}
