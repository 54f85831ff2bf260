package pokeapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy. Every error returned by the client wraps one of these.
var (
	// ErrInvalidRequest covers unknown endpoints, resource plus querystring, and bad identifiers.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownResource is returned when a numeric id is not in the endpoint catalog.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrRemoteFailure wraps non-success responses and transport failures.
	ErrRemoteFailure = errors.New("remote request failed")
	// ErrCacheIO is returned when some cache containers could not be read or written.
	ErrCacheIO = errors.New("cache io failure")
	// ErrCacheUnavailable is fatal: nothing could be persisted at all.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrMalformedIdentifier is returned when a JSON key cannot become a Go identifier.
	ErrMalformedIdentifier = errors.New("malformed identifier")
	// ErrEmptyCatalog is returned when an endpoint listing yields no names to match against.
	ErrEmptyCatalog = errors.New("empty catalog")
)

// Static errors for err113 compliance.
var (
	ErrCacheMiss            = errors.New("cache miss")
	ErrCacheDisabled        = errors.New("cache disabled")
	ErrCacheClosed          = errors.New("cache closed")
	ErrNotAReference        = errors.New("node is not a resource reference")
	ErrNotPokeAPIURL        = errors.New("url does not belong to the configured base url")
	ErrConfigRequired       = errors.New("config is required")
	ErrBaseURLRequired      = errors.New("base URL is required")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrInvalidCacheMaxAge   = errors.New("cache max age must not be negative")
	ErrClientClosed         = errors.New("client closed")
	ErrFieldType            = errors.New("field has a different type")
	ErrFieldMissing         = errors.New("field not present")
	ErrTrailingData         = errors.New("trailing data after top-level value")
	ErrUnexpectedDelim      = errors.New("unexpected json delimiter")
	ErrUnexpectedShape      = errors.New("response is not a json object")
	ErrCircuitBreakerOpen   = errors.New("circuit breaker is open")
)

// APIError describes a non-success response from the remote service.
type APIError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	URL        string `json:"url"         yaml:"url"`
	Detail     string `json:"detail"      yaml:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: GET %s returned %d", ErrRemoteFailure, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("%s: GET %s returned %d: %s", ErrRemoteFailure, e.URL, e.StatusCode, e.Detail)
}

// Unwrap lets errors.Is(err, ErrRemoteFailure) match.
func (e *APIError) Unwrap() error {
	return ErrRemoteFailure
}

// MalformedIdentifierError names the JSON key that could not be sanitized.
type MalformedIdentifierError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("%s: key %q %s", ErrMalformedIdentifier, e.Key, e.Reason)
}

// Unwrap lets errors.Is(err, ErrMalformedIdentifier) match.
func (e *MalformedIdentifierError) Unwrap() error {
	return ErrMalformedIdentifier
}

// IsNotFound checks if the error is a 404 from the remote service.
func IsNotFound(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsInvalidRequest checks if the error is an InvalidRequest.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsUnknownResource checks if the error is an UnknownResource.
func IsUnknownResource(err error) bool {
	return errors.Is(err, ErrUnknownResource)
}

// IsRemoteFailure checks if the error came from the fetch layer.
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrRemoteFailure)
}

func invalidRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
