package unsplash

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a failed request cycle for logs and metrics.
type ErrorClass string

const (
	// ErrorClassConfigMissing means no access key was configured.
	ErrorClassConfigMissing ErrorClass = "config_missing"

	// ErrorClassRequest represents a non-2xx response.
	ErrorClassRequest ErrorClass = "request_failed"

	// ErrorClassDecode represents a body that is not a photo array.
	ErrorClassDecode ErrorClass = "decode_failed"

	// ErrorClassNetwork represents transport failures (DNS, connect, timeout).
	ErrorClassNetwork ErrorClass = "network"
)

var (
	// ErrConfigMissing is reported when the client is built without an access key.
	// It is diagnostic only: requests are still attempted.
	ErrConfigMissing = errors.New("unsplash access key is not configured")

	// ErrDecodeFailed is wrapped by errors for bodies that cannot be parsed.
	ErrDecodeFailed = errors.New("decode photos")
)

// RequestError is returned for a non-success HTTP status.
type RequestError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unsplash request failed with status %d: %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("unsplash request failed with status %d", e.StatusCode)
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("unsplash network error: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of an error produced by the client.
// Unknown errors are reported as network errors.
func ClassOf(err error) ErrorClass {
	var reqErr *RequestError
	var netErr *NetworkError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigMissing):
		return ErrorClassConfigMissing
	case errors.As(err, &reqErr):
		return ErrorClassRequest
	case errors.Is(err, ErrDecodeFailed):
		return ErrorClassDecode
	case errors.As(err, &netErr):
		return ErrorClassNetwork
	default:
		return ErrorClassNetwork
	}
}
