package central

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxBodyExcerpt bounds the amount of upstream body kept on errors
const maxBodyExcerpt = 256

// ValidationError reports bad caller input, or an upstream 4xx rejecting the request
type ValidationError struct {
	Field      string
	Value      string
	Reason     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ValidationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s rejected request with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NotFoundError reports a well-formed request with no matching entity
type NotFoundError struct {
	Resource   string
	ID         string
	Endpoint   string
	StatusCode int
}

func (e *NotFoundError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %q not found (%s returned %d)", e.Resource, e.ID, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// UpstreamShapeError reports a successful response that does not match the expected schema
type UpstreamShapeError struct {
	Endpoint string
	Reason   string
	Body     string
	Cause    error
}

func (e *UpstreamShapeError) Error() string {
	msg := fmt.Sprintf("unexpected response from %s: %s", e.Endpoint, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UpstreamShapeError) Unwrap() error {
	return e.Cause
}

// UpstreamUnavailableError reports a 5xx, a transport failure or an open circuit.
// The request may be retried by the caller.
type UpstreamUnavailableError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Cause      error
}

func (e *UpstreamUnavailableError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s unavailable: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Endpoint, e.Cause)
	default:
		return fmt.Sprintf("%s unavailable", e.Endpoint)
	}
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Cause
}

// Retryable is always true for reads against an unavailable upstream
func (e *UpstreamUnavailableError) Retryable() bool {
	return true
}

// excerpt trims and caps a response body for inclusion in errors
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		cut := maxBodyExcerpt
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

// statusError maps a non-2xx status to the error taxonomy
func statusError(endpoint, resource, id string, status int, body []byte) error {
	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{Resource: resource, ID: id, Endpoint: endpoint, StatusCode: status}
	case status >= 400 && status < 500:
		return &ValidationError{Endpoint: endpoint, StatusCode: status, Body: excerpt(body)}
	default:
		return &UpstreamUnavailableError{Endpoint: endpoint, StatusCode: status, Body: excerpt(body)}
	}
}
