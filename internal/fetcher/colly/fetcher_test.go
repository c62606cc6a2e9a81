package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamSzakal/gboc-get/internal/crawler"
)

func newGuideServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/area/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<h2>` + r.UserAgent() + `</h2>`))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/area/1", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	srv := newGuideServer(t)
	f := New(Config{UserAgent: "gboc-test", Timeout: time.Second})

	page, err := f.Fetch(context.Background(), srv.URL+"/area/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, srv.URL+"/area/1", page.URL)
	assert.Equal(t, "<h2>gboc-test</h2>", string(page.Body))

	// The same URL can be fetched again.
	_, err = f.Fetch(context.Background(), srv.URL+"/area/1")
	require.NoError(t, err)
}

func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()

	srv := newGuideServer(t)
	page, err := New(Config{UserAgent: "redirected"}).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "<h2>redirected</h2>", string(page.Body))
}

func TestFetchNotFound(t *testing.T) {
	t.Parallel()

	srv := newGuideServer(t)
	_, err := New(Config{}).Fetch(context.Background(), srv.URL+"/missing")
	require.ErrorIs(t, err, crawler.ErrNotFound)

	var statusErr *crawler.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()

	srv := newGuideServer(t)
	_, err := New(Config{}).Fetch(context.Background(), srv.URL+"/broken")

	var statusErr *crawler.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.True(t, statusErr.Transient())
	assert.NotErrorIs(t, err, crawler.ErrNotFound)
}

func TestFetchHonorsContext(t *testing.T) {
	t.Parallel()

	srv := newGuideServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(Config{}).Fetch(ctx, srv.URL+"/slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", RespectRobots: true, Timeout: time.Second})
	collector := f.buildCollector(&crawler.Page{}, new(error))
	assert.Equal(t, "coverage-agent", collector.UserAgent)
	assert.False(t, collector.IgnoreRobotsTxt)

	collector = New(Config{}).buildCollector(&crawler.Page{}, new(error))
	assert.True(t, collector.IgnoreRobotsTxt)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	var (
		result   crawler.Page
		fetchErr error
	)
	hooks := &stubHooks{}
	configureCollectorHooks(hooks, &result, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("body"),
		Request:    &colly.Request{URL: mustParseURL(t, "https://guide.test/a")},
	})
	assert.Equal(t, crawler.Page{URL: "https://guide.test/a", StatusCode: http.StatusOK, Body: []byte("body")}, result)

	hooks.onError(nil, errors.New("boom"))
	assert.EqualError(t, fetchErr, "boom")

	hooks.onError(&colly.Response{
		StatusCode: http.StatusNotFound,
		Request:    &colly.Request{URL: mustParseURL(t, "https://guide.test/b")},
	}, errors.New("Not Found"))
	assert.ErrorIs(t, fetchErr, crawler.ErrNotFound)
	assert.EqualError(t, fetchErr, "fetch https://guide.test/b: status 404")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
