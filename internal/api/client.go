// Package api is the authenticated request layer between the client services
// and the remote Connectify API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackmichael/connectify/internal/domain"
	"github.com/blackmichael/connectify/internal/telemetry"
)

const (
	defaultBaseURL = "http://localhost:3000"
	defaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-ID"
)

// Client sends requests to the remote API. It holds no session state: the
// caller passes the credential on every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *telemetry.Metrics
}

var _ domain.Requester = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the API at baseURL. If baseURL is empty, it
// defaults to http://localhost:3000.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AssetURL resolves a stored picture path to the URL it is served from.
func (c *Client) AssetURL(picturePath string) string {
	if picturePath == "" {
		return ""
	}
	return c.baseURL + "/assets/" + strings.TrimLeft(picturePath, "/")
}

// Do issues the request and decodes the JSON response into out. A response
// that doesn't decode into out is a *domain.MalformedResponseError.
func (c *Client) Do(ctx context.Context, method, endpoint, credential string, body, out any) error {
	raw, err := c.Call(ctx, method, endpoint, credential, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Debug("api response does not match expected shape", "method", method, "endpoint", endpoint, "error", err)
		return &domain.MalformedResponseError{Endpoint: endpoint, Err: err}
	}
	return nil
}

// Call issues a single request and returns the raw JSON body of a 2xx
// response. Failures are *domain.NetworkError, *domain.APIError or
// *domain.MalformedResponseError. There are no retries.
func (c *Client) Call(ctx context.Context, method, endpoint, credential string, body any) (json.RawMessage, error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body for %s %s: %w", method, endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	raw, status, err := c.send(req, endpoint)
	elapsed := time.Since(start)

	c.metrics.ObserveRequest(method, outcomeOf(err), elapsed)
	c.logger.Debug("api request",
		"method", method,
		"endpoint", endpoint,
		"status", status,
		"duration", elapsed,
		"request_id", requestID,
		"authenticated", credential != "",
		"error", err,
	)

	return raw, err
}

func (c *Client) send(req *http.Request, endpoint string) (json.RawMessage, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &domain.NetworkError{Method: req.Method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &domain.NetworkError{
			Method:   req.Method,
			Endpoint: endpoint,
			Err:      fmt.Errorf("read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, newAPIError(resp.StatusCode, respBody)
	}

	if !json.Valid(respBody) {
		return nil, resp.StatusCode, &domain.MalformedResponseError{
			Endpoint: endpoint,
			Err:      errors.New("response body is not valid JSON"),
		}
	}

	return json.RawMessage(respBody), resp.StatusCode, nil
}

func newAPIError(status int, body []byte) *domain.APIError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &domain.APIError{Status: status, Message: payload.Message, HasMessage: true}
	}
	return &domain.APIError{
		Status:  status,
		Message: fmt.Sprintf("request failed with status %d", status),
	}
}

func outcomeOf(err error) string {
	var (
		netErr *domain.NetworkError
		apiErr *domain.APIError
	)
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.As(err, &netErr):
		return telemetry.OutcomeNetwork
	case errors.As(err, &apiErr):
		return telemetry.OutcomeAPI
	default:
		return telemetry.OutcomeMalformed
	}
}

func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}

	if carrier, ok := body.(domain.AttachmentCarrier); ok {
		if att := carrier.Attachment(); att != nil {
			return encodeMultipart(body, att)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}
	return bytes.NewReader(payload), "application/json", nil
}
