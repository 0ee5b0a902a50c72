package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/requestid"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

const (
	maxResponseBody = 64 << 10
	maxErrorBody    = 200
)

// client is the JSON transport shared by AuthClient and SubscriptionsClient.
type client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	breaker   *CircuitBreaker
	log       *slog.Logger
}

// Option configures a backend client.
type Option func(*client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithCircuitBreaker makes calls fail fast while the backend is down.
// Pass the same breaker to clients that share a host.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *client) {
		c.breaker = cb
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *client) {
		if l != nil {
			c.log = l
		}
	}
}

func newClient(baseURL string, opts ...Option) (*client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:   10 * time.Second,
		userAgent: "storekit/1.0",
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends one request and decodes a 2xx JSON answer into out.
// Every failure is joined with a subscription sentinel:
//   - network errors, timeouts, 5xx and unexpected 4xx: ErrTransport
//   - {"error":"expired_token"}: ErrAuthExpired
//   - 404: ErrNotFound
func (c *client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return errors.Join(subscription.ErrTransport, ErrCircuitOpen)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := requestid.FromContextOrNew(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestid.Header, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure()
		c.log.DebugContext(ctx, "backend request failed",
			logger.Component("backend"),
			logger.RequestID(requestID),
			slog.String("path", path),
			logger.Error(err),
		)
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return errors.Join(subscription.ErrTransport, context.DeadlineExceeded, err)
		}
		return errors.Join(subscription.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.recordFailure()
		return errors.Join(subscription.ErrTransport, err)
	}

	c.log.DebugContext(ctx, "backend request",
		logger.Component("backend"),
		logger.RequestID(requestID),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	if resp.StatusCode >= 500 {
		c.recordFailure()
	} else {
		c.recordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(subscription.ErrTransport, ErrUnexpectedResponse, err)
	}
	return nil
}

func (c *client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

func classify(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Error
	}
	if apiErr.Code == "" && len(raw) > 0 {
		s := strings.ReplaceAll(string(raw), "\n", " ")
		if len(s) > maxErrorBody {
			s = s[:maxErrorBody] + "..."
		}
		apiErr.Body = s
	}

	switch {
	case apiErr.Code == expiredTokenCode:
		return errors.Join(subscription.ErrAuthExpired, apiErr)
	case status == http.StatusNotFound:
		return errors.Join(subscription.ErrNotFound, apiErr)
	default:
		return errors.Join(subscription.ErrTransport, apiErr)
	}
}
