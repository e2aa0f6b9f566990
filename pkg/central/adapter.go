package central

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBody bounds how much of a response body is read
const maxResponseBody = 8 << 20

// HTTPRequester adapts an *http.Client to the Requester interface.
// Authentication, TLS and timeouts are properties of the supplied client.
type HTTPRequester struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRequester creates a requester issuing calls relative to baseURL
func NewHTTPRequester(baseURL string, client *http.Client) *HTTPRequester {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRequester{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Do implements Requester
func (h *HTTPRequester) Do(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := h.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", req.Endpoint, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamUnavailableError{Endpoint: req.Endpoint, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &UpstreamUnavailableError{Endpoint: req.Endpoint, StatusCode: resp.StatusCode, Cause: err}
	}

	return &Response[json.RawMessage]{
		StatusCode: resp.StatusCode,
		Payload:    json.RawMessage(body),
	}, nil
}
