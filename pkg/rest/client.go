// Package rest is the editor's HTTP client for the page composer backend.
//
// Every request goes through [Client], which joins paths onto the backend
// base URL, applies default headers, retries transient failures with
// exponential backoff and maps failing statuses to [errors.StatusError].
// [API] adds the typed endpoints (page model, toolkit, parameters,
// documents) on top, caching the lookups that do not change while a page is
// being edited.
package rest

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

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/observability"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
)

// Client performs requests against one backend.
type Client struct {
	http     *http.Client
	base     *url.URL
	headers  map[string]string
	logger   *log.Logger
	attempts int
	delay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// NewClient returns a client for the backend at base.
func NewClient(base string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(base); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "backend url")
	}
	c := &Client{
		http:     &http.Client{Timeout: defaultTimeout},
		base:     u,
		headers:  map[string]string{"Accept": "application/json"},
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		attempts: defaultAttempts,
		delay:    defaultDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Base returns the backend base URL.
func (c *Client) Base() string { return c.base.String() }

// URL resolves path against the backend base URL.
func (c *Client) URL(path string) string {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return c.base.String() + strings.TrimPrefix(path, "/")
	}
	return c.base.ResolveReference(ref).String()
}

// GetJSON decodes the JSON response of GET path into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	return c.Do(ctx, http.MethodGet, path, nil, "", v)
}

// GetText returns the body of GET path.
func (c *Client) GetText(ctx context.Context, path string) (string, error) {
	var buf bytes.Buffer
	err := c.Do(ctx, http.MethodGet, path, nil, "", &buf)
	return buf.String(), err
}

// PostJSON posts body as JSON and decodes the response into v (may be nil).
func (c *Client) PostJSON(ctx context.Context, path string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request for %s", path)
	}
	return c.Do(ctx, http.MethodPost, path, data, "application/json", v)
}

// PostForm posts form-encoded values and decodes the response into v (may
// be nil).
func (c *Client) PostForm(ctx context.Context, path string, values url.Values, v any) error {
	return c.Do(ctx, http.MethodPost, path, []byte(values.Encode()), "application/x-www-form-urlencoded", v)
}

// Do performs a request with retries. A *bytes.Buffer v receives the raw
// body; any other non-nil v is JSON-decoded.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, contentType string, v any) error {
	target := c.URL(path)
	attempt := 0
	err := Retry(ctx, c.attempts, c.delay, func() error {
		attempt++
		if attempt > 1 {
			c.logger.Debug("retrying request", "method", method, "url", target, "attempt", attempt)
		}
		return c.once(ctx, method, target, body, contentType, v)
	})
	if err != nil {
		c.logger.Debug("request failed", "method", method, "url", target, "err", err)
	}
	return err
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, contentType string, v any) error {
	hooks := observability.HTTP()
	host, reqPath := c.base.Host, target
	if u, err := url.Parse(target); err == nil {
		host, reqPath = u.Host, u.Path
	}
	hooks.OnRequest(ctx, method, host, reqPath)
	start := time.Now()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build %s %s", method, target)
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, reqPath, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, target)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, reqPath, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, target); err != nil {
		return err
	}
	switch dst := v.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *bytes.Buffer:
		_, err := dst.ReadFrom(resp.Body)
		return err
	default:
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode response of %s", target)
		}
		return nil
	}
}

func checkStatus(resp *http.Response, target string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	se := &errors.StatusError{
		StatusCode: resp.StatusCode,
		Status:     strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
		URL:        target,
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &RetryableError{Err: se}
	}
	return se
}
