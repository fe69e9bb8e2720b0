package client

import (
	"errors"
	"fmt"
)

// Kind classifies request failures so callers can decide whether to retry,
// surface or degrade without parsing error strings.
type Kind int

const (
	// KindTransport covers connection, timeout and protocol failures raised
	// by the underlying transport before a usable response arrived.
	KindTransport Kind = iota + 1

	// KindHTTPStatus covers non-2xx server responses other than a missing
	// resource; the status code and a body excerpt are attached.
	KindHTTPStatus

	// KindDecode covers 2xx responses whose body does not match the
	// expected shape.
	KindDecode

	// KindNotFound covers 404 responses for lookups by identifier.
	KindNotFound
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// maxBodyExcerpt caps how much of an error response body is kept on the
// error value.
const maxBodyExcerpt = 512

// Error is the discriminated error returned by every client operation.
type Error struct {
	Kind       Kind
	Method     string
	URL        string
	StatusCode int    // Set for KindHTTPStatus and KindNotFound
	Body       string // Response body excerpt for status errors
	Err        error  // Wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("loupe: %s %s: not found (HTTP %d)", e.Method, e.URL, e.StatusCode)
	case KindHTTPStatus:
		return fmt.Sprintf("loupe: %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	case KindDecode:
		return fmt.Sprintf("loupe: %s %s: decoding response: %v", e.Method, e.URL, e.Err)
	default:
		return fmt.Sprintf("loupe: %s %s: %v", e.Method, e.URL, e.Err)
	}
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsHTTPStatus reports whether err is a non-2xx server response error.
func IsHTTPStatus(err error) bool {
	return hasKind(err, KindHTTPStatus)
}

// IsDecode reports whether err is a response decoding error.
func IsDecode(err error) bool {
	return hasKind(err, KindDecode)
}

// IsTransport reports whether err is a connection-level failure.
func IsTransport(err error) bool {
	return hasKind(err, KindTransport)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt]) + "..."
	}
	return string(body)
}
