// Package detector decides when a page fetched over plain HTTP needs to be
// fetched again with the headless browser, and wires that decision into a
// Fetcher.
package detector

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/AdamSzakal/gboc-get/internal/crawler"
	"github.com/AdamSzakal/gboc-get/internal/metrics"
)

const defaultThreshold = 2048

// Detector inspects a fetched page.
type Detector interface {
	ShouldPromote(page crawler.Page) bool
}

// Heuristic flags pages that look rendered by client-side script.
type Heuristic struct {
	// BodyLengthThreshold is the size below which a script-heavy page counts
	// as a shell.
	BodyLengthThreshold int
}

// NewHeuristic creates a Heuristic. A zero threshold uses 2048 bytes.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// ShouldPromote reports whether page should be fetched headlessly. Only
// successful responses are considered.
func (h *Heuristic) ShouldPromote(page crawler.Page) bool {
	if page.StatusCode != 0 && page.StatusCode != 200 {
		return false
	}
	if len(bytes.TrimSpace(page.Body)) == 0 {
		return true
	}
	if len(page.Body) < h.BodyLengthThreshold && scriptShare(page.Body) >= 25 {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(page.Body, marker) {
			return true
		}
	}
	return false
}

// scriptShare is the percentage of body taken up by <script> elements. An
// unterminated element runs to the end of the body.
func scriptShare(body []byte) int {
	lower := bytes.ToLower(body)
	open, end := []byte("<script"), []byte("</script>")
	covered := 0
	for rest := lower; ; {
		i := bytes.Index(rest, open)
		if i < 0 {
			break
		}
		rest = rest[i:]
		j := bytes.Index(rest, end)
		if j < 0 {
			covered += len(rest)
			break
		}
		covered += j + len(end)
		rest = rest[j+len(end):]
	}
	return covered * 100 / len(lower)
}

// Promote returns a Fetcher that fetches with fast and refetches with slow
// when d flags the result. If the headless fetch fails the fast page is kept.
func Promote(fast, slow crawler.Fetcher, d Detector, logger *zap.Logger) crawler.Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return crawler.FetchFunc(func(ctx context.Context, url string) (crawler.Page, error) {
		page, err := fast.Fetch(ctx, url)
		if err != nil || !d.ShouldPromote(page) {
			return page, err
		}
		metrics.ObservePromotion()
		rendered, err := slow.Fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return crawler.Page{}, ctx.Err()
			}
			logger.Warn("headless fetch failed, keeping plain response",
				zap.String("url", url),
				zap.Error(err),
			)
			return page, nil
		}
		return rendered, nil
	})
}
