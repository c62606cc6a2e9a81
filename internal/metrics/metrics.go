// Package metrics exposes Prometheus collectors for crawls, site builds and
// the preview server.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerFetchesTotal        *prometheus.CounterVec
	crawlerSkipsTotal          *prometheus.CounterVec
	crawlDurationSeconds       prometheus.Histogram
	sitePagesWrittenTotal      *prometheus.CounterVec
	siteBytesWrittenTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	fetchPromotionsTotal       prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gboc_crawler_fetches_total",
				Help: "Total number of page fetches, labeled by page kind and outcome.",
			},
			[]string{"kind", "status"},
		)

		crawlerSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gboc_crawler_skips_total",
				Help: "Total number of nodes left out of a crawl, labeled by page kind and reason.",
			},
			[]string{"kind", "reason"},
		)

		crawlDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gboc_crawl_duration_seconds",
				Help:    "Histogram of full crawl durations.",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
			},
		)

		sitePagesWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gboc_site_pages_written_total",
				Help: "Total number of site files written, labeled by writer backend.",
			},
			[]string{"backend"},
		)

		siteBytesWrittenTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gboc_site_bytes_written_total",
				Help: "Total number of bytes written to the site, labeled by writer backend.",
			},
			[]string{"backend"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gboc_crawler_rate_limit_delay_seconds",
				Help:    "Histogram of politeness waits before a fetch, labeled by host.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		fetchPromotionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gboc_crawler_headless_promotions_total",
				Help: "Total number of pages refetched with the headless browser.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch counts one fetch of a page of the given kind.
func ObserveFetch(kind, status string) {
	crawlerFetchesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveSkip counts one node dropped from a crawl.
func ObserveSkip(kind, reason string) {
	crawlerSkipsTotal.WithLabelValues(kind, reason).Inc()
}

// ObserveCrawl records the duration of a finished crawl.
func ObserveCrawl(duration time.Duration) {
	crawlDurationSeconds.Observe(duration.Seconds())
}

// ObservePageWritten counts one written site file.
func ObservePageWritten(backend string, size int) {
	sitePagesWrittenTotal.WithLabelValues(backend).Inc()
	if size > 0 {
		siteBytesWrittenTotal.WithLabelValues(backend).Add(float64(size))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records a politeness wait before fetching from host.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObservePromotion counts one page refetched headlessly.
func ObservePromotion() {
	fetchPromotionsTotal.Inc()
}
