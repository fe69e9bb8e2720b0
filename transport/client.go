// Package transport performs the HTTP round trips for the loupe-go client.
// It owns connection handling, per-attempt timeouts, retry with backoff and
// optional client-side rate limiting. Callers above this package (the typed
// API bindings) never touch net/http directly; they hand a Request to a Doer
// and receive a Response with the raw body.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Doer executes a single logical HTTP operation. The default implementation
// is ExecutorFunc(Execute); tests and callers with custom transports inject
// their own.
type Doer interface {
	Do(req *Request) (*Response, error)
}

// ExecutorFunc adapts a plain function to the Doer interface.
type ExecutorFunc func(req *Request) (*Response, error)

// Do implements Doer.
func (f ExecutorFunc) Do(req *Request) (*Response, error) {
	return f(req)
}

// Default returns the standard transport used by the client when none is
// injected.
func Default() Doer {
	return ExecutorFunc(Execute)
}

// RateLimited wraps a Doer with a client-side token bucket so bursts of
// queries do not hammer the server. rps is the sustained requests per
// second, burst the bucket size.
func RateLimited(next Doer, rps float64, burst int) Doer {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return ExecutorFunc(func(req *Request) (*Response, error) {
		ctx := req.Context
		if ctx == nil {
			ctx = context.Background()
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		return next.Do(req)
	})
}

// Execute performs an HTTP request and returns the response
func Execute(req *Request) (*Response, error) {
	startTime := time.Now()

	// Validate request
	if req.Method == "" {
		return nil, fmt.Errorf("HTTP method is required")
	}
	if req.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}

	// Every logical request carries one id across all retry attempts so the
	// server can correlate them.
	requestID := uuid.NewString()

	// Execute with retry logic
	var lastErr error
	var lastResp *Response
	attempts := req.RetryCount + 1 // Initial attempt + retries

	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := executeOnce(req, requestID)
		if err == nil {
			resp.Duration = time.Since(startTime)
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		// Don't retry on client errors (4xx); the request itself is wrong
		if resp != nil && resp.IsClientError() {
			resp.Duration = time.Since(startTime)
			return resp, err
		}

		// Don't retry if the context is gone
		if req.Context != nil && req.Context.Err() != nil {
			return nil, req.Context.Err()
		}

		if attempt < attempts-1 {
			backoff := calculateBackoff(attempt, req.RetryBackoff, req.RetryInterval)
			if err := sleepContext(req.Context, backoff); err != nil {
				return nil, err
			}
		}
	}

	// The last response, if any, is returned so callers can inspect the
	// final status and body.
	if lastResp != nil {
		lastResp.Duration = time.Since(startTime)
	}
	return lastResp, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// sleepContext waits for the given duration, returning early with the
// context error when the context is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		time.Sleep(d)
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// executeOnce performs a single HTTP request attempt
func executeOnce(req *Request, requestID string) (*Response, error) {
	httpReq, err := buildRequest(req, requestID)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    make(map[string]string),
		Body:       body,
		RequestID:  requestID,
	}

	// Copy headers
	for key, values := range httpResp.Header {
		if len(values) > 0 {
			resp.Headers[key] = values[0]
		}
	}

	// Check for HTTP errors; the response is still returned so the caller
	// can inspect status and body.
	if !resp.IsSuccess() {
		return resp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return resp, nil
}

// buildRequest constructs the net/http request, attaching query parameters,
// headers and an optional JSON or raw body.
func buildRequest(req *Request, requestID string) (*http.Request, error) {
	var body io.Reader
	var contentType string

	switch req.Method {
	case "GET", "HEAD", "DELETE", "OPTIONS":
		// No body for simple methods
	case "POST", "PUT", "PATCH":
		if req.JSONBody != "" {
			body = strings.NewReader(req.JSONBody)
			contentType = "application/json"
		} else if req.RawBody != nil {
			body = bytes.NewReader(req.RawBody)
			contentType = "application/octet-stream"
		} else {
			return nil, fmt.Errorf("%s request requires a body (JSON or raw bytes)", req.Method)
		}
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", req.Method)
	}

	target := req.URL
	if len(req.Query) > 0 {
		target = target + "?" + req.Query.Encode()
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("X-Request-Id", requestID)

	// Add custom headers (can override Content-Type)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	return httpReq, nil
}

// calculateBackoff calculates retry backoff duration
func calculateBackoff(attempt int, strategy string, initial time.Duration) time.Duration {
	if initial == 0 {
		initial = 1 * time.Second
	}
	if strategy == "linear" {
		return initial * time.Duration(attempt+1)
	}

	// Exponential backoff (default)
	multiplier := 1 << uint(attempt) // 2^attempt
	return initial * time.Duration(multiplier)
}
