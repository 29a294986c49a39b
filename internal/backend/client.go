// Package backend talks to the storefront's REST API.
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

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/resilience"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// ErrUnavailable is returned when the backend cannot be reached.
var ErrUnavailable = errors.New("backend unavailable")

// Error is a non-2xx answer from the backend.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// IsStatus reports whether err is a backend Error with the given status.
func IsStatus(err error, status int) bool {
	var be *Error
	return errors.As(err, &be) && be.Status == status
}

// Config configures the Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Breaker   *resilience.Breaker
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// Client issues JSON requests against the backend. Failed calls are not retried.
type Client struct {
	baseURL string
	http    resilience.HTTPClient
	logger  zerolog.Logger
}

// New constructs a Client with an instrumented transport.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 30*time.Second).WithTarget("backend").WithLogger(cfg.Logger)
	}
	c := &Client{baseURL: base, logger: cfg.Logger}
	c.http = resilience.HTTPClient{
		Client:  &http.Client{Transport: otelhttp.NewTransport(transport)},
		Breaker: breaker,
		Timeout: timeout,
		Observe: c.observe,
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request and decodes the JSON answer into out.
func (c *Client) Get(ctx context.Context, path, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path, token string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, token, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path, token string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, token, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path, token string, out any) error {
	return c.do(ctx, http.MethodDelete, path, token, nil, out)
}

// Ping checks that the backend answers at all. Any non-5xx status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return &Error{Method: http.MethodGet, Path: "/products", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if c == nil {
		return errors.New("backend client not configured")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode, Detail: detailFrom(data)}
		c.logger.Error().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Str("detail", apiErr.Detail).Msg("backend request rejected")
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(_ context.Context, req *http.Request, status int, elapsed time.Duration, err error) {
	op := operation(req)
	result := "error"
	if err == nil {
		result = fmt.Sprintf("%dxx", status/100)
	}
	obs.CountBackend(op, result)

	evt := c.logger.Debug().Str("op", op).Str("url", req.URL.Redacted()).Int("status", status).Dur("elapsed", elapsed)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("backend_call")
}

// operation names a call by method and first path segment, so
// "/users/42/orders" and "/users/7/orders" share one label.
func operation(req *http.Request) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	return req.Method + " /" + first
}

// detailFrom extracts the "detail" message the backend attaches to failures.
// Validation failures carry a list of {msg} objects instead of a string.
func detailFrom(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
