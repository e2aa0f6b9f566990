package central

import (
	"context"
	"encoding/json"
	"time"
)

// RequestObserver receives the outcome of every request.
// status is 0 when no response was received.
type RequestObserver interface {
	ObserveRequest(endpoint string, status int, duration time.Duration)
}

type instrumentedRequester struct {
	next     Requester
	observer RequestObserver
}

// NewInstrumentedRequester reports each request made through next to observer
func NewInstrumentedRequester(next Requester, observer RequestObserver) Requester {
	return &instrumentedRequester{next: next, observer: observer}
}

// Do implements Requester
func (r *instrumentedRequester) Do(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
	start := time.Now()
	resp, err := r.next.Do(ctx, req)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	r.observer.ObserveRequest(req.Endpoint, status, time.Since(start))

	return resp, err
}
