package crawler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(Page), args.Error(1)
}

func TestStatusErrorMatchesNotFound(t *testing.T) {
	t.Parallel()

	var err error = &StatusError{URL: "https://guide.test/x", StatusCode: http.StatusNotFound}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "fetch https://guide.test/x: status 404")

	err = &StatusError{URL: "https://guide.test/x", StatusCode: http.StatusBadGateway}
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestExponentialRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(2, 0, 0)
	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"nil error", nil, 1, false},
		{"server error", &StatusError{StatusCode: http.StatusServiceUnavailable}, 1, true},
		{"too many requests", &StatusError{StatusCode: http.StatusTooManyRequests}, 1, true},
		{"not found", &StatusError{StatusCode: http.StatusNotFound}, 1, false},
		{"forbidden", &StatusError{StatusCode: http.StatusForbidden}, 1, false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, 2, true},
		{"attempts exhausted", &StatusError{StatusCode: http.StatusBadGateway}, 3, false},
		{"canceled", context.Canceled, 1, false},
		{"unknown", errors.New("boom"), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestExponentialRetryPolicyBackoffIsBounded(t *testing.T) {
	t.Parallel()

	p := NewExponentialRetryPolicy(5, 100*time.Millisecond, time.Second)
	for attempt := 1; attempt <= 8; attempt++ {
		d := p.Backoff(attempt)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.Zero(t, NewExponentialRetryPolicy(1, 0, 0).Backoff(1))
}

func TestWithRetryRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	m := new(MockFetcher)
	unavailable := &StatusError{URL: "u", StatusCode: http.StatusServiceUnavailable}
	m.On("Fetch", mock.Anything, "u").Return(Page{}, unavailable).Twice()
	m.On("Fetch", mock.Anything, "u").Return(Page{URL: "u", StatusCode: http.StatusOK}, nil).Once()

	page, err := WithRetry(m, NewExponentialRetryPolicy(3, 0, 0)).Fetch(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	m.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestWithRetryDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	m := new(MockFetcher)
	m.On("Fetch", mock.Anything, "u").Return(Page{}, &StatusError{URL: "u", StatusCode: http.StatusNotFound})

	_, err := WithRetry(m, NewExponentialRetryPolicy(3, 0, 0)).Fetch(context.Background(), "u")
	require.ErrorIs(t, err, ErrNotFound)
	m.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestWithRetryGivesUp(t *testing.T) {
	t.Parallel()

	m := new(MockFetcher)
	m.On("Fetch", mock.Anything, "u").Return(Page{}, &StatusError{URL: "u", StatusCode: http.StatusBadGateway})

	_, err := WithRetry(m, NewExponentialRetryPolicy(2, 0, 0)).Fetch(context.Background(), "u")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	m.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestWithRetryStopsWhenCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := new(MockFetcher)
	m.On("Fetch", mock.Anything, "u").Return(Page{}, &StatusError{URL: "u", StatusCode: http.StatusBadGateway})

	_, err := WithRetry(m, NewExponentialRetryPolicy(3, time.Hour, time.Hour)).Fetch(ctx, "u")
	require.ErrorIs(t, err, context.Canceled)
	m.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestWithRetryNilPolicy(t *testing.T) {
	t.Parallel()

	m := new(MockFetcher)
	assert.Same(t, m, WithRetry(m, nil))
}

func TestWithLimitBoundsInFlightFetches(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	slow := FetchFunc(func(context.Context, string) (Page, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Page{}, nil
	})

	limited := WithLimit(slow, 2)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limited.Fetch(context.Background(), "u")
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

func TestWithLimitCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := FetchFunc(func(context.Context, string) (Page, error) {
		entered <- struct{}{}
		<-release
		return Page{}, nil
	})
	limited := WithLimit(blocking, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = limited.Fetch(context.Background(), "first")
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.Fetch(ctx, "second")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}
