package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamSzakal/gboc-get/internal/crawler"
)

func TestLimiterSpacesRequestsToOneHost(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1: the second request waits about 100ms.
	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://guide.test/area/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://guide.test/area/2"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.test/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.test/1"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for range 50 {
		require.NoError(t, l.Wait(context.Background(), "https://guide.test/"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterCanceled(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.01, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://guide.test/"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://guide.test/")
	assert.Error(t, err)
}

func TestWrapWaitsBeforeFetching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := crawler.FetchFunc(func(_ context.Context, url string) (crawler.Page, error) {
		calls.Add(1)
		return crawler.Page{URL: url, StatusCode: 200}, nil
	})
	f := New(Config{RPS: 0.01, Burst: 1}).Wrap(next)

	page, err := f.Fetch(context.Background(), "https://guide.test/")
	require.NoError(t, err)
	assert.Equal(t, "https://guide.test/", page.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, "https://guide.test/")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
