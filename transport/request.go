package transport

import (
	"context"
	"net/url"
	"time"
)

// Request represents a single HTTP operation against the Loupe API
type Request struct {
	// HTTP basics
	Method string     // GET, POST, PUT, DELETE, PATCH, HEAD
	URL    string     // Target URL without query string
	Query  url.Values // Query parameters appended to the URL

	// Headers and authentication
	Headers map[string]string // HTTP headers

	// Request body options
	JSONBody string // JSON body for application/json requests
	RawBody  []byte // Raw body bytes (for custom content types)

	// Network configuration
	Timeout time.Duration // Per-attempt timeout (0 = default 30s)

	// Retry configuration
	RetryCount    int           // Number of retries on failure (default: 0)
	RetryBackoff  string        // "exponential" or "linear" (default: "exponential")
	RetryInterval time.Duration // Initial retry interval (default: 1s)

	// Advanced
	UserAgent string          // Custom User-Agent header
	Context   context.Context // Optional context for cancellation
}

// NewRequest creates a new Request with sensible defaults
func NewRequest(method, rawURL string) *Request {
	return &Request{
		Method:        method,
		URL:           rawURL,
		Query:         url.Values{},
		Headers:       make(map[string]string),
		Timeout:       30 * time.Second,
		RetryCount:    0,
		RetryBackoff:  "exponential",
		RetryInterval: 1 * time.Second,
	}
}

// Response represents an HTTP response with metadata
type Response struct {
	StatusCode int               // HTTP status code
	Status     string            // HTTP status message
	Headers    map[string]string // Response headers
	Body       []byte            // Response body
	RequestID  string            // X-Request-Id assigned to the request
	Duration   time.Duration     // Total request duration including retries
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true if status code is 3xx
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError returns true if status code is 4xx
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if status code is 5xx
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
