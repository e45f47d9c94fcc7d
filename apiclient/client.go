// Package apiclient is the single request path used by every feature API
// client. It injects the bearer token and tenant header from the session
// store, bounds each request with a deadline, and performs exactly one
// transparent refresh-and-retry cycle on 401.
package apiclient

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

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/internal/apierrors"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request unless overridden per client.
const DefaultTimeout = 10 * time.Second

const defaultTenantHeader = "X-Tenant-Key"

// Refresher re-establishes the session after a 401. It reports success as a
// boolean because it is called opportunistically: the 401 handler, not the
// refresher, decides what error the caller ultimately sees.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) bool
}

// requestState tracks a single logical request through the 401 handling
// path. The progression is strictly forward, which is what caps the retry
// at one refresh-and-retry cycle.
type requestState int

const (
	statePending requestState = iota
	stateUnauthorized
	stateRefreshAttempted
	stateRetryPending
)

// Client is a base API client bound to one backend base URL.
type Client struct {
	baseURL      string
	timeout      time.Duration
	tenantHeader string
	store        *sessions.Store
	refresher    Refresher
	httpClient   *http.Client
	log          zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRefresher enables the transparent 401 refresh-and-retry path.
// Without one, a 401 is surfaced directly.
func WithRefresher(r Refresher) Option {
	return func(c *Client) {
		c.refresher = r
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTenantHeader overrides the header name carrying the tenant key.
func WithTenantHeader(name string) Option {
	return func(c *Client) {
		c.tenantHeader = name
	}
}

// NewFromConfig builds a Client for the platform backend, taking the base
// URL, request timeout and tenant header name from the shared configuration.
func NewFromConfig(c config.Config, store *sessions.Store, options ...Option) *Client {
	base := []Option{
		WithTimeout(c.GetRequestTimeout()),
		WithTenantHeader(c.GetTenantHeader()),
	}
	return New(c.GetPlatformBaseURL(), store, append(base, options...)...)
}

func New(baseURL string, store *sessions.Store, options ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		timeout:      DefaultTimeout,
		tenantHeader: defaultTenantHeader,
		store:        store,
		httpClient:   &http.Client{},
		log:          zerolog.Nop(),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Do executes one logical request. body (if non-nil) is JSON-serialized;
// the response is decoded into out when out is non-nil, the body is
// non-empty, and the response declares itself JSON - so empty 200/204
// mutation responses never fail decoding. headers, when supplied, win over
// the injected defaults.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, headers http.Header) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[Client.Do] marshal request body: %w", err)
		}
	}

	requestID := uuid.NewString()
	state := statePending

	for {
		result, err := c.attempt(ctx, method, endpoint, bodyBytes, headers, requestID)
		if err != nil {
			return err
		}

		if result.status == http.StatusUnauthorized && state == statePending {
			state = stateUnauthorized
			if c.refresher == nil {
				return apierrors.HTTPStatus(result.status, result.statusText)
			}

			state = stateRefreshAttempted
			if !c.refresher.RefreshAccessToken(ctx) {
				c.log.Debug().Str("request_id", requestID).Msg("token refresh failed, surfacing 401")
				return apierrors.HTTPStatus(result.status, result.statusText)
			}

			// Retry once; headers are rebuilt on the next attempt so the
			// fresh token is picked up.
			state = stateRetryPending
			c.log.Debug().Str("request_id", requestID).Msg("token refreshed, retrying request")
			continue
		}

		if result.status < 200 || result.status > 299 {
			return apierrors.HTTPStatus(result.status, result.statusText)
		}

		return decodeBody(result.body, result.contentType, out)
	}
}

type attemptResult struct {
	status      int
	statusText  string
	contentType string
	body        []byte
}

// attempt performs one network round-trip with freshly built headers and a
// fresh deadline.
func (c *Client) attempt(ctx context.Context, method, endpoint string, body []byte, headers http.Header, requestID string) (*attemptResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("[Client.attempt] build request: %w", err)
	}

	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.store.Token(); ok && token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if tenantKey, ok := c.store.TenantKey(); ok && tenantKey != "" && req.Header.Get(c.tenantHeader) == "" {
		req.Header.Set(c.tenantHeader, tenantKey)
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classifyTransportError(ctx, endpoint, err)
	}

	return &attemptResult{
		status:      resp.StatusCode,
		statusText:  http.StatusText(resp.StatusCode),
		contentType: resp.Header.Get("Content-Type"),
		body:        respBody,
	}, nil
}

// classifyTransportError separates the three non-HTTP failure shapes: our
// own deadline (timeout, status 408), the caller's cancellation (propagated
// untouched), and everything else (network, status 0).
func (c *Client) classifyTransportError(ctx context.Context, endpoint string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return apierrors.Timeout(fmt.Sprintf("request to %s timed out after %s", endpoint, c.timeout), err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apierrors.Network(fmt.Sprintf("request to %s failed", endpoint), err)
}

func decodeBody(body []byte, contentType string, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if !strings.Contains(contentType, "application/json") {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
