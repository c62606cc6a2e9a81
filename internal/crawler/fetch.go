package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound reports a page the source answered with 404. It is never retried.
var ErrNotFound = errors.New("page not found")

// Page is a fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// FetchFunc adapts a plain function to Fetcher.
type FetchFunc func(ctx context.Context, url string) (Page, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, url string) (Page, error) {
	return f(ctx, url)
}

// StatusError is returned by fetchers for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// Is matches ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Transient reports whether a later attempt may succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
