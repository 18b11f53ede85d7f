// Package backend talks to the remote booking service. Every call returns a
// tagged Result; failures never surface as Go errors or panics to callers.
package backend

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

	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/metrics"
)

const (
	outcomeSuccess      = "success"
	outcomeUnauthorized = "unauthorized"
	outcomeHTTPError    = "http_error"
	outcomeTransport    = "transport_error"
)

// TokenHolder is the session state the client reads the bearer token from and
// clears when the backend rejects it.
type TokenHolder interface {
	Token(ctx context.Context) string
	ClearToken(ctx context.Context)
}

// Result is the outcome of one backend call.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	// Unauthorized marks a 401; the session token has already been cleared and
	// the caller should send the user to the login screen.
	Unauthorized bool
}

// Err returns nil for a successful result and an error carrying the failure
// message otherwise.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("backend request failed")
	}
	return errors.New(r.Error)
}

func failure[T any](message string, status int) Result[T] {
	return Result[T]{Error: message, StatusCode: status}
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each call. Zero keeps calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client issues single-attempt JSON requests against the backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	metrics *metrics.Metrics
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs a request against endpoint (path plus optional query string) and
// returns the raw JSON payload on success.
func (c *Client) Do(ctx context.Context, sess TokenHolder, method, endpoint string, body any) Result[json.RawMessage] {
	return doRoute[json.RawMessage](ctx, c, sess, method, routeOf(endpoint), endpoint, body)
}

// Get decodes the response of a GET into T.
func Get[T any](ctx context.Context, c *Client, sess TokenHolder, endpoint string) Result[T] {
	return doRoute[T](ctx, c, sess, http.MethodGet, routeOf(endpoint), endpoint, nil)
}

// Put sends body as JSON and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, sess TokenHolder, endpoint string, body any) Result[T] {
	return doRoute[T](ctx, c, sess, http.MethodPut, routeOf(endpoint), endpoint, body)
}

// Post sends body as JSON and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, sess TokenHolder, endpoint string, body any) Result[T] {
	return doRoute[T](ctx, c, sess, http.MethodPost, routeOf(endpoint), endpoint, body)
}

// doRoute performs the request and decodes the response into T. route is the
// low-cardinality label used for logs and metrics.
func doRoute[T any](ctx context.Context, c *Client, sess TokenHolder, method, route, endpoint string, body any) Result[T] {
	logger := log.Ctx(ctx).With().Str("method", method).Str("endpoint", route).Logger()
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode backend request")
			return failure[T](err.Error(), 0)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build backend request")
		return failure[T](err.Error(), 0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if sess != nil {
		if token := sess.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(method, route, outcomeTransport, time.Since(start))
		logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Backend request failed")
		return failure[T](err.Error(), 0)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)

	if resp.StatusCode == http.StatusUnauthorized {
		if sess != nil {
			sess.ClearToken(ctx)
		}
		c.metrics.ObserveBackend(method, route, outcomeUnauthorized, elapsed)
		logger.Warn().Int("status", resp.StatusCode).Dur("duration", elapsed).Msg("Backend rejected token; session cleared")
		result := failure[T]("unauthorized", resp.StatusCode)
		result.Unauthorized = true
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveBackend(method, route, outcomeHTTPError, elapsed)
		message := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		logger.Warn().Int("status", resp.StatusCode).Dur("duration", elapsed).Msg("Backend request returned error status")
		return failure[T](message, resp.StatusCode)
	}

	if err != nil {
		c.metrics.ObserveBackend(method, route, outcomeTransport, elapsed)
		logger.Warn().Err(err).Msg("Failed to read backend response")
		return failure[T](err.Error(), resp.StatusCode)
	}

	var data T
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			c.metrics.ObserveBackend(method, route, outcomeTransport, elapsed)
			logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Failed to decode backend response")
			return failure[T](err.Error(), resp.StatusCode)
		}
	}

	c.metrics.ObserveBackend(method, route, outcomeSuccess, elapsed)
	logger.Debug().Int("status", resp.StatusCode).Dur("duration", elapsed).Msg("Backend request completed")
	return Result[T]{Success: true, Data: data, StatusCode: resp.StatusCode}
}

func routeOf(endpoint string) string {
	if idx := strings.IndexByte(endpoint, '?'); idx != -1 {
		return endpoint[:idx]
	}
	return endpoint
}
