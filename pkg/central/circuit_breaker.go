package central

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig configures the circuit breaker behavior
type CircuitBreakerConfig struct {
	// MaxConsecutiveFailures is the number of consecutive failures before opening
	MaxConsecutiveFailures uint32
	// Timeout is how long the circuit breaker stays open before trying half-open
	Timeout time.Duration
	// OnStateChange is called on every transition, e.g. for logging
	OnStateChange func(from, to CircuitBreakerState)
}

// DefaultCircuitBreakerConfig returns sensible defaults
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxConsecutiveFailures: 5,
		Timeout:                30 * time.Second,
	}
}

// CircuitBreakerState represents the circuit breaker state
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the state name
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// errServerStatus marks a 5xx response so the breaker counts it as a failure
var errServerStatus = errors.New("server error status")

// callerGoneError marks a failure caused by the caller's context ending.
// The breaker treats it as a success so an abandoned scrape never trips it.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Unwrap() error { return e.err }

// CircuitBreakerRequester wraps a Requester with circuit breaker protection.
// Only 5xx responses and transport failures count against the breaker;
// 4xx responses are the caller's problem and leave it closed.
type CircuitBreakerRequester struct {
	next    Requester
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration

	mu       sync.Mutex
	lastErr  error
	lastTime time.Time
}

// NewRequesterWithCircuitBreaker wraps a Requester with circuit breaker protection
func NewRequesterWithCircuitBreaker(next Requester, config CircuitBreakerConfig) *CircuitBreakerRequester {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "CentralAPI",
		MaxRequests: 1,
		Interval:    config.Timeout,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			if config.OnStateChange != nil {
				config.OnStateChange(fromGobreaker(from), fromGobreaker(to))
			}
		},
	})

	return &CircuitBreakerRequester{
		next:    next,
		breaker: cb,
		timeout: config.Timeout,
	}
}

// Do implements Requester with circuit breaker protection
func (cb *CircuitBreakerRequester) Do(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		resp, err := cb.next.Do(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerGoneError{err: err}
			}
			return nil, err
		}
		if resp != nil && resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})

	if errors.Is(err, errServerStatus) {
		// The client maps the status itself; only the breaker needed to see a failure
		cb.record(fmt.Errorf("%s returned %d", req.Endpoint, result.(*Response[json.RawMessage]).StatusCode))
		return result.(*Response[json.RawMessage]), nil
	}
	var gone *callerGoneError
	if errors.As(err, &gone) {
		return nil, gone.err
	}
	if err != nil {
		cb.record(err)
		return nil, cb.wrapError(req.Endpoint, err)
	}

	return result.(*Response[json.RawMessage]), nil
}

// wrapError converts circuit breaker errors to unavailable errors
func (cb *CircuitBreakerRequester) wrapError(endpoint string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return &UpstreamUnavailableError{
			Endpoint: endpoint,
			Cause:    fmt.Errorf("circuit breaker is open: API is temporarily unavailable (will retry after %v): %w", cb.timeout, err),
		}
	}

	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &UpstreamUnavailableError{
			Endpoint: endpoint,
			Cause:    fmt.Errorf("circuit breaker is half-open: testing API recovery: %w", err),
		}
	}

	return err
}

func (cb *CircuitBreakerRequester) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastErr = err
	cb.lastTime = time.Now()
}

// State returns the current circuit breaker state
func (cb *CircuitBreakerRequester) State() CircuitBreakerState {
	return fromGobreaker(cb.breaker.State())
}

// LastError returns the last error that occurred
func (cb *CircuitBreakerRequester) LastError() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastErr
}

// LastErrorTime returns when the last error occurred
func (cb *CircuitBreakerRequester) LastErrorTime() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastTime
}

func fromGobreaker(s gobreaker.State) CircuitBreakerState {
	switch s {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}
