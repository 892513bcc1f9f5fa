package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// TokenFunc returns the bearer token to send, or "".
type TokenFunc func(ctx context.Context) string

// Client talks to the quiz and progress endpoints.
type Client struct {
	base   string
	hc     *http.Client
	token  TokenFunc
	logger *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }
func WithToken(fn TokenFunc) Option         { return func(c *Client) { c.token = fn } }
func WithLogger(l *zap.Logger) Option       { return func(c *Client) { c.logger = l } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		hc:     &http.Client{Timeout: 15 * time.Second},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func quizPath(quizType, slug string, rest ...string) string {
	parts := append([]string{"/api/quizzes", url.PathEscape(quizType), url.PathEscape(slug)}, rest...)
	return strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug("api status", zap.String("op", op), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

func (c *Client) GetQuiz(ctx context.Context, quizType, slug string) (*quiz.Payload, error) {
	var p quiz.Payload
	if err := c.do(ctx, "get quiz", http.MethodGet, quizPath(quizType, slug), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CompleteQuiz(ctx context.Context, quizType, slug string, r quiz.Results) error {
	return c.do(ctx, "complete quiz", http.MethodPost, quizPath(quizType, slug, "complete"), r, nil)
}

func (c *Client) GetQuizResults(ctx context.Context, quizType, slug string) (*quiz.Results, error) {
	var r quiz.Results
	if err := c.do(ctx, "get results", http.MethodGet, quizPath(quizType, slug, "results"), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GetProgress(ctx context.Context, courseID string) (*progress.CourseProgress, error) {
	var p progress.CourseProgress
	if err := c.do(ctx, "get progress", http.MethodGet, "/api/progress/"+url.PathEscape(courseID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProgress(ctx context.Context, p progress.CourseProgress) (*progress.CourseProgress, error) {
	var out progress.CourseProgress
	if err := c.do(ctx, "update progress", http.MethodPost, "/api/progress/"+url.PathEscape(p.CourseID), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
