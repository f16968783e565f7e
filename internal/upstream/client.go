package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"insightdocs-gateway/internal/model"
)

const (
	// fallbackAnswer stands in when the service replies without an answer
	// field; an empty answer alone is never an error.
	fallbackAnswer = "No response available."

	fallbackQueryError    = "An error occurred while fetching the response."
	fallbackFeedbackError = "Feedback submission failed."

	defaultTimeout = 60 * time.Second
)

// ErrUnknownScope means no query endpoint is configured for the scope.
var ErrUnknownScope = errors.New("no query endpoint configured for scope")

// RequestError is a settled non-success outcome of an upstream call. Message
// is the user-facing text: the service's structured error message when it
// sent one, a generic fallback otherwise.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Config selects the remote InsightDocs API endpoints. QueryPaths maps a
// conversational scope to its endpoint path.
type Config struct {
	BaseURL      string
	QueryPaths   map[string]string
	FeedbackPath string
	Timeout      time.Duration
}

// Client talks to the remote query, feedback, and corpus-admin endpoints.
// All calls attach the given access token as a bearer header and make exactly
// one request; failed calls are surfaced, never retried here.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	queryPaths   map[string]string
	feedbackPath string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		queryPaths:   cfg.QueryPaths,
		feedbackPath: cfg.FeedbackPath,
	}
}

// QueryResult is the parsed success payload of one query round trip.
type QueryResult struct {
	Answer  string
	Sources []model.SourceCandidate
}

type queryRequest struct {
	Query string `json:"query"`
	Scope string `json:"scope"`
}

// Query posts one question to the scope's endpoint and returns the raw
// answer and citation candidates.
func (c *Client) Query(ctx context.Context, token, scope, query string) (*QueryResult, error) {
	path, ok := c.queryPaths[scope]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}

	raw, err := c.post(ctx, token, path, queryRequest{Query: query, Scope: scope}, fallbackQueryError)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Answer  string                  `json:"answer"`
		Sources []model.SourceCandidate `json:"sources"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse query response failed: %w", err)
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		parsed.Answer = fallbackAnswer
	}
	return &QueryResult{Answer: parsed.Answer, Sources: parsed.Sources}, nil
}

type feedbackRequest struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Response  string         `json:"response"`
	Feedback  string         `json:"feedback"`
	Sources   []model.Source `json:"sources,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// SubmitFeedback reports a judgment for one message. The caller mutates its
// local feedback state only after this returns nil.
func (c *Client) SubmitFeedback(ctx context.Context, token string, msg model.Message, positive bool) error {
	verdict := model.FeedbackNegative
	if positive {
		verdict = model.FeedbackPositive
	}
	payload := feedbackRequest{
		ID:        msg.ID,
		Query:     msg.Query,
		Response:  msg.Answer,
		Feedback:  verdict,
		Sources:   msg.Sources,
		Timestamp: msg.Timestamp.UnixMilli(),
	}

	_, err := c.post(ctx, token, c.feedbackPath, payload, fallbackFeedbackError)
	return err
}

// post issues one JSON POST and returns the success body. Transport failures
// and non-2xx statuses come back as *RequestError carrying the display text.
func (c *Client) post(ctx context.Context, token, path string, body any, fallbackMsg string) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build upstream request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Message: fallbackMsg}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, Message: fallbackMsg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(raw, fallbackMsg),
		}
	}
	return raw, nil
}

// extractMessage pulls the service's structured error message out of a JSON
// body, falling back to the given text.
func extractMessage(raw []byte, fallback string) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fallback
	}
	if strings.TrimSpace(parsed.Message) == "" {
		return fallback
	}
	return parsed.Message
}
