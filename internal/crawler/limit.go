package crawler

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// WithLimit bounds the number of in-flight fetches through next to n across
// every goroutine sharing the returned Fetcher. n <= 0 disables the bound.
func WithLimit(next Fetcher, n int) Fetcher {
	if n <= 0 {
		return next
	}
	sem := semaphore.NewWeighted(int64(n))
	return FetchFunc(func(ctx context.Context, url string) (Page, error) {
		if err := sem.Acquire(ctx, 1); err != nil {
			return Page{}, fmt.Errorf("acquire fetch slot: %w", err)
		}
		defer sem.Release(1)
		return next.Fetch(ctx, url)
	})
}
