package backend

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
	"golang.org/x/oauth2"

	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/metrics"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 15 * time.Second
)

// Config controls how the portal reaches the system of record.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the REST client for the insurance backend. Bearer tokens travel on
// the request context (see WithToken) so one Client serves every session.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	log       *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTransport overrides the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithLogger overrides the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient constructs a backend client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = defaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: base url %q must be absolute", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		base:      base,
		timeout:   timeout,
		transport: http.DefaultTransport,
		log:       logger.WithModule("backend"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type tokenKey struct{}

// WithToken attaches the backend bearer token for calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached with WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func (c *Client) httpClient(ctx context.Context) *http.Client {
	token := TokenFromContext(ctx)
	if token == "" {
		return &http.Client{Timeout: c.timeout, Transport: c.transport}
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &http.Client{
		Timeout:   c.timeout,
		Transport: &oauth2.Transport{Source: source, Base: c.transport},
	}
}

// do sends one request and decodes a successful body into out when non-nil.
// endpoint is the metric label and never contains ids.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body any, out any) error {
	target := *c.base
	target.Path = c.base.Path + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "transport_error").Inc()
		c.log.Warn("backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.Error(err),
		)
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.Debug("backend request",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.BackendRequests.WithLabelValues(endpoint, statusLabel(resp.StatusCode)).Inc()
		return statusError(endpoint, resp.StatusCode, data)
	}
	metrics.BackendRequests.WithLabelValues(endpoint, "success").Inc()

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	switch typed := out.(type) {
	case *string:
		*typed = textMessage(data)
		return nil
	case *json.RawMessage:
		*typed = append((*typed)[:0], data...)
		return nil
	}
	if err := Decode(data, out); err != nil {
		return &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func statusLabel(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "not_found"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "unauthorized"
	case code >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

func pathID(id int64) string {
	return fmt.Sprintf("%d", id)
}

// Ping reports whether the backend answers HTTP at all. Any status code
// counts as reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/", nil)
	if err != nil {
		return fmt.Errorf("backend: build ping request: %w", err)
	}
	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return &NetworkError{Endpoint: "ping", Err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
