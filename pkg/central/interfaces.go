// Package central provides interfaces for management API interactions.
package central

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes one call to the management API
type Request struct {
	// Endpoint is a stable name for the call, used in errors, logs and metrics
	Endpoint string
	Method   string
	Path     string
	Query    url.Values
	Header   http.Header
}

// Requester issues requests against a remote API.
// Implementations return a Response for every HTTP status, and an
// *UpstreamUnavailableError when no response was received.
// This interface allows for dependency injection and testing with mocks.
type Requester interface {
	Do(ctx context.Context, req Request) (*Response[json.RawMessage], error)
}

// RequesterFunc adapts a function to the Requester interface
type RequesterFunc func(ctx context.Context, req Request) (*Response[json.RawMessage], error)

// Do implements Requester
func (f RequesterFunc) Do(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
	return f(ctx, req)
}
