// Package klaviyo is the outbound adapter for the Klaviyo JSON:API. It covers
// the four operations the relay needs (profile upsert, profile patch, list
// subscription, event send) across the supported API revisions.
package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fagerbits/quizrelay/pkg/logger"
	"github.com/fagerbits/quizrelay/pkg/metrics"
)

// Default client parameters.
const (
	defaultBaseURL       = "https://a.klaviyo.com"
	defaultTimeout       = 15 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = 500 * time.Millisecond
	defaultPollAttempts  = 5
	defaultPollInterval  = time.Second
)

// Client talks to the Klaviyo API.
type Client struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	schema        Schema
	retryAttempts int
	retryBase     time.Duration
	pollAttempts  int
	pollInterval  time.Duration
	log           logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRevision selects the API revision dialect.
func WithRevision(rev string) Option {
	return func(c *Client) {
		if s, err := SchemaForRevision(rev); err == nil {
			c.schema = s
		}
	}
}

// WithRetry configures the event send retry budget.
func WithRetry(attempts int, base time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithPolling configures subscription job polling.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.pollAttempts = attempts
		}
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client. The API key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		schema:        schema2024{},
		retryAttempts: defaultRetryAttempts,
		retryBase:     defaultRetryBase,
		pollAttempts:  defaultPollAttempts,
		pollInterval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("klaviyo")
	}
	return c, nil
}

// Revision returns the active API revision.
func (c *Client) Revision() string { return c.schema.Revision() }

// do performs one API call and returns the status, body, and Location header.
// A transport failure returns an error; non-2xx statuses do not, callers
// decide what a given status means for their operation.
func (c *Client) do(ctx context.Context, operation, method, path string, body any) (int, []byte, string, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, "", fmt.Errorf("marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(buf)
	}

	url := path
	if !strings.HasPrefix(path, "http") {
		url = c.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, "", fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.apiKey)
	req.Header.Set("revision", c.schema.Revision())
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordKlaviyoRequest(operation, "transport_error")
		metrics.RecordKlaviyoRequestDuration(operation, elapsed)
		return 0, nil, "", fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	metrics.RecordKlaviyoRequest(operation, strconv.Itoa(resp.StatusCode))
	metrics.RecordKlaviyoRequestDuration(operation, elapsed)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, "", fmt.Errorf("read %s response: %w", operation, err)
	}
	return resp.StatusCode, raw, resp.Header.Get("Location"), nil
}
