// Package api provides a Go client for the TaskBounty REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/taskbounty/bountyctl/internal/config"
	"github.com/taskbounty/bountyctl/internal/rate"
	"github.com/taskbounty/bountyctl/internal/session"
)

// ErrUnauthorized marks 401/403 responses so callers can force a re-login.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// RateLimitError is returned when the client-side limiter refuses a write
// before it reaches the network.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited locally, retry in %s", e.RetryAfter.Round(time.Second))
}

// Client is a TaskBounty API client. The credential travels as a
// `Cookie: jwt=...` header, mirroring how the server issues it via
// Set-Cookie; this is bearer-token transport, not cookie-jar handling.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	sess     *session.Session
	limiter  rate.Limiter
	limits   config.RateLimits
	strategy retry.Strategy
}

// New creates a client bound to the given session.
func New(cfg config.Config, sess *session.Session) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		sess:       sess,
		limiter:    rate.NewMemory(),
		limits:     cfg.RateLimits,
		strategy:   retry.Strategy{Attempts: 3, Delay: 200 * time.Millisecond, Backoff: 2.0},
	}
}

// do performs one HTTP request with the session credential attached.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(payload)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.sess.Token(); token != "" {
		req.Header.Set("Cookie", "jwt="+token)
	}
	return c.HTTPClient.Do(req)
}

// get performs a GET, retrying transport failures with the client's
// backoff strategy. Non-2xx statuses are not retried.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(func() error {
		r, err := c.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("path", path).Msg("get failed, may retry")
			return err
		}
		resp = r
		return nil
	}, c.strategy)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// allow consults the local write limiter for one of the server's
// published per-minute windows.
func (c *Client) allow(key string, limit int) error {
	if limit <= 0 {
		return nil
	}
	ok, retryAfter := c.limiter.Allow(key, limit, time.Minute)
	if !ok {
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

// statusError converts a non-success response into an *APIError, pulling
// the server's message field out of the body when present.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var envelope struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		msg = envelope.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// pageEnvelope is the Spring-style paged response wrapper; clients only
// consume the content array.
type pageEnvelope[T any] struct {
	Content []T `json:"content"`
}

func decodePage[T any](resp *http.Response) ([]T, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	// Some list endpoints return the envelope, others a bare array.
	var env pageEnvelope[T]
	if err := json.Unmarshal(body, &env); err == nil && env.Content != nil {
		return env.Content, nil
	}
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}
