package central

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRequester returns a fixed status or error and counts calls
type stubRequester struct {
	calls  atomic.Int32
	status atomic.Int32
	err    error
}

func newStub(status int, err error) *stubRequester {
	s := &stubRequester{err: err}
	s.status.Store(int32(status))
	return s
}

func (s *stubRequester) Do(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &Response[json.RawMessage]{StatusCode: int(s.status.Load()), Payload: json.RawMessage(`{}`)}, nil
}

func testBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{MaxConsecutiveFailures: 3, Timeout: 50 * time.Millisecond}
}

var statusReq = Request{Endpoint: "ap_status", Path: "/monitoring/v2/aps"}

// TestCircuitBreaker_OpensAfterTransportFailures tests that the breaker opens and short-circuits
func TestCircuitBreaker_OpensAfterTransportFailures(t *testing.T) {
	stub := newStub(0, errors.New("connection reset"))
	cb := NewRequesterWithCircuitBreaker(stub, testBreakerConfig())

	for i := 0; i < 3; i++ {
		_, err := cb.Do(context.Background(), statusReq)
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	_, err := cb.Do(context.Background(), statusReq)

	var ue *UpstreamUnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(3), stub.calls.Load())
	assert.Error(t, cb.LastError())
	assert.False(t, cb.LastErrorTime().IsZero())
}

// TestCircuitBreaker_ServerErrorsPassThrough tests that 5xx responses reach the caller and count as failures
func TestCircuitBreaker_ServerErrorsPassThrough(t *testing.T) {
	stub := newStub(503, nil)
	cb := NewRequesterWithCircuitBreaker(stub, testBreakerConfig())

	for i := 0; i < 3; i++ {
		resp, err := cb.Do(context.Background(), statusReq)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
	}

	assert.Equal(t, CircuitOpen, cb.State())
	assert.Contains(t, cb.LastError().Error(), "503")
}

// TestCircuitBreaker_ClientErrorsDoNotTrip tests that 4xx responses leave the breaker closed
func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	stub := newStub(404, nil)
	cb := NewRequesterWithCircuitBreaker(stub, testBreakerConfig())

	for i := 0; i < 10; i++ {
		resp, err := cb.Do(context.Background(), statusReq)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	}

	assert.Equal(t, CircuitClosed, cb.State())
	assert.Nil(t, cb.LastError())
}

// TestCircuitBreaker_Recovers tests the open -> half-open -> closed cycle
func TestCircuitBreaker_Recovers(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	cfg := testBreakerConfig()
	cfg.OnStateChange = func(from, to CircuitBreakerState) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	stub := newStub(500, nil)
	cb := NewRequesterWithCircuitBreaker(stub, cfg)

	for i := 0; i < 3; i++ {
		_, _ = cb.Do(context.Background(), statusReq)
	}
	require.Equal(t, CircuitOpen, cb.State())

	stub.status.Store(200)
	require.Eventually(t, func() bool {
		return cb.State() == CircuitHalfOpen
	}, time.Second, 10*time.Millisecond)

	resp, err := cb.Do(context.Background(), statusReq)
	require.NoError(t, err)
	assert.True(t, resp.Success())
	assert.Equal(t, CircuitClosed, cb.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

// TestCircuitBreaker_IgnoresCallerCancellation tests that requests abandoned by the caller never trip the breaker
func TestCircuitBreaker_IgnoresCallerCancellation(t *testing.T) {
	blocking := RequesterFunc(func(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
		<-ctx.Done()
		return nil, &UpstreamUnavailableError{Endpoint: req.Endpoint, Cause: ctx.Err()}
	})
	cb := NewRequesterWithCircuitBreaker(blocking, testBreakerConfig())

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_, err := cb.Do(ctx, statusReq)
		cancel()

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}

	assert.Equal(t, CircuitClosed, cb.State())
	assert.Nil(t, cb.LastError())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cb.Do(canceled, statusReq)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()

	assert.Equal(t, uint32(5), cfg.MaxConsecutiveFailures)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses map[string][]int
}

func (o *recordingObserver) ObserveRequest(endpoint string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.statuses == nil {
		o.statuses = make(map[string][]int)
	}
	o.statuses[endpoint] = append(o.statuses[endpoint], status)
}

func TestInstrumentedRequester(t *testing.T) {
	observer := &recordingObserver{}

	ok := NewInstrumentedRequester(newStub(200, nil), observer)
	failing := NewInstrumentedRequester(newStub(0, errors.New("timeout")), observer)

	resp, err := ok.Do(context.Background(), statusReq)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	_, err = failing.Do(context.Background(), Request{Endpoint: "ssid_allow"})
	assert.Error(t, err)

	assert.Equal(t, []int{200}, observer.statuses["ap_status"])
	assert.Equal(t, []int{0}, observer.statuses["ssid_allow"])
}
