// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the MemoBot backend API.
const (
	// DefaultBaseURL is the base URL of the assistant backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultRatePerMinute caps outbound chat requests per minute.
	DefaultRatePerMinute = 30

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all backend requests; per-request deadlines
// come from the caller's context, not a client-level timeout.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatRequest is the body for POST /ai/chat.
type chatRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// chatResponse is the body the backend returns.
type chatResponse struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	Timestamp   string   `json:"timestamp"`
}

// apiErrorResponse is the FastAPI error envelope.
type apiErrorResponse struct {
	Detail string `json:"detail"`
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client is the HTTP adapter for the MemoBot assistant backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewClient creates a backend client.
//
// The token is the opaque bearer token issued by the backend's auth
// layer; token lifecycle is the caller's concern. An empty token is
// allowed and simply sends unauthenticated requests.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      strings.TrimSpace(token),
		httpClient: sharedHTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(DefaultRatePerMinute)/60.0), 5),
		userAgent:  "memobot-tui/0.1.0",
	}
}

// WithRatePerMinute overrides the client-side request rate cap.
func (c *Client) WithRatePerMinute(perMinute int) *Client {
	if perMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 5)
	}
	return c
}

// WithHTTPClient overrides the underlying HTTP client (used in tests).
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send implements Adapter. It performs a single attempt; retry policy
// belongs to the session engine, not the transport.
func (c *Client) Send(ctx context.Context, req Request) (*Reply, error) {
	// Client-side rate cap so retry storms cannot hammer the backend.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Classify(err)
	}

	body, err := json.Marshal(chatRequest{
		Message: req.Text,
		Context: req.History,
	})
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to marshal request", Err: err}
	}

	url := c.baseURL + "/ai/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to create request", Err: err}
	}
	c.setHeaders(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)

	// SECURITY: Clear Authorization header after the request so it can
	// never leak through request logging.
	httpReq.Header.Del("Authorization")

	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	c.logResponse(httpReq, resp, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, &Error{Kind: KindServer, Message: err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, &Error{Kind: KindServer, Message: "failed to parse response", Err: err}
	}

	return &Reply{
		RequestID:   req.RequestID,
		Text:        chatResp.Message,
		Suggestions: chatResp.Suggestions,
	}, nil
}

// setHeaders sets the required headers for backend requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// logResponse logs status and duration only; never bodies or headers.
func (c *Client) logResponse(req *http.Request, resp *http.Response, duration time.Duration) {
	log.Printf("backend: %s %s -> %d (%v)", req.Method, req.URL.Path, resp.StatusCode, duration)
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to classified errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) *Error {
	message := strings.TrimSpace(string(body))
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
		message = apiErr.Detail
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &Error{Kind: KindServer, Message: fmt.Sprintf("authentication rejected (HTTP %d): %s", statusCode, message)}
	case statusCode == http.StatusTooManyRequests:
		return &Error{Kind: KindServer, Message: "rate limited by backend: " + message}
	case statusCode >= 500:
		return &Error{Kind: KindServer, Message: fmt.Sprintf("backend error (HTTP %d): %s", statusCode, message)}
	default:
		return &Error{Kind: KindServer, Message: fmt.Sprintf("unexpected status %d: %s", statusCode, message)}
	}
}
