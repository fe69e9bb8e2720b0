// Package client implements the core HTTP binding for the Loupe search
// engine API. It owns base URL handling, bearer authentication and the
// error taxonomy; the typed endpoint packages (batches) build their query
// parameters and hand the request to Client.Get.
//
// The client performs no caching: every call issues a fresh request and
// reflects current server state. Retries, timeouts and rate limiting are
// the transport's concern and are configured through Config.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loupesearch/loupe-go/common"
	"github.com/loupesearch/loupe-go/transport"
	"github.com/loupesearch/loupe-go/version"
)

// Config collects the knobs for constructing a Client. Only BaseURL is
// required; everything else has working defaults.
type Config struct {
	// BaseURL is the root of the Loupe server, e.g. "http://localhost:7700".
	BaseURL string

	// APIKey, when set, is sent as an Authorization: Bearer header.
	APIKey string

	// Timeout is the per-attempt request timeout (default: 30s).
	Timeout time.Duration

	// RetryCount is the number of retries on transport or 5xx failures
	// performed by the transport (default: 0, no retries).
	RetryCount int

	// RetryInterval is the initial backoff interval between retries
	// (default: 1s, exponential).
	RetryInterval time.Duration

	// RateLimit caps sustained client-side requests per second.
	// Zero disables rate limiting.
	RateLimit float64

	// UserAgent overrides the default loupe-go/<version> header value.
	UserAgent string

	// Logger receives debug-level request logging. Defaults to the shared
	// common.Logger.
	Logger *logrus.Logger

	// Transport replaces the default HTTP executor. Mainly for tests and
	// callers with custom connection handling.
	Transport transport.Doer
}

// Client is the handle through which all API requests flow. It is safe for
// concurrent use; all fields are set at construction and never mutated.
type Client struct {
	baseURL       string
	apiKey        string
	timeout       time.Duration
	retryCount    int
	retryInterval time.Duration
	userAgent     string
	logger        *logrus.Logger
	transport     transport.Doer
}

// New creates a Client from cfg, validating the base URL.
func New(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", cfg.BaseURL)
	}

	doer := cfg.Transport
	if doer == nil {
		doer = transport.Default()
	}
	if cfg.RateLimit > 0 {
		doer = transport.RateLimited(doer, cfg.RateLimit, 1)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = common.Logger
	}

	return &Client{
		baseURL:       strings.TrimRight(parsed.String(), "/"),
		apiKey:        cfg.APIKey,
		timeout:       cfg.Timeout,
		retryCount:    cfg.RetryCount,
		retryInterval: cfg.RetryInterval,
		userAgent:     userAgent,
		logger:        logger,
		transport:     doer,
	}, nil
}

// BaseURL returns the normalized server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET against path (e.g. "/batches") with the given query
// parameters and decodes the 2xx JSON response body into out. A nil out
// discards the body. Failures are returned as *Error with the appropriate
// Kind; no partial results are synthesized.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")

	req := transport.NewRequest(http.MethodGet, target)
	req.Context = ctx
	req.Query = query
	req.Timeout = c.timeout
	req.RetryCount = c.retryCount
	req.RetryInterval = c.retryInterval
	req.UserAgent = c.userAgent
	if c.apiKey != "" {
		req.Headers["Authorization"] = "Bearer " + c.apiKey
	}

	c.logger.WithFields(logrus.Fields{
		"method": http.MethodGet,
		"url":    target,
		"query":  query.Encode(),
	}).Debug("loupe API request")

	resp, err := c.transport.Do(req)
	if err != nil {
		if resp != nil && !resp.IsSuccess() {
			kind := KindHTTPStatus
			if resp.StatusCode == http.StatusNotFound {
				kind = KindNotFound
			}
			return &Error{
				Kind:       kind,
				Method:     http.MethodGet,
				URL:        target,
				StatusCode: resp.StatusCode,
				Body:       excerpt(resp.Body),
				Err:        err,
			}
		}
		return &Error{
			Kind:   KindTransport,
			Method: http.MethodGet,
			URL:    target,
			Err:    err,
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{
			Kind:   KindDecode,
			Method: http.MethodGet,
			URL:    target,
			Err:    err,
		}
	}

	return nil
}
