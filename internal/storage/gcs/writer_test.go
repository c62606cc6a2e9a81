package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type upload struct {
	name string
	body string
}

// newTestWriter points a writer at a server simulating the GCS JSON upload API.
func newTestWriter(t *testing.T, cfg Config, status int) (*Writer, func() []upload) {
	t.Helper()

	var (
		mu      sync.Mutex
		uploads []upload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		name := r.URL.Query().Get("name")
		mu.Lock()
		uploads = append(uploads, upload{name: name, body: string(body)})
		mu.Unlock()
		fmt.Fprintf(w, `{"name": %q, "bucket": %q}`, name, cfg.Bucket)
	}))
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	w, err := New(client, cfg)
	require.NoError(t, err)
	return w, func() []upload {
		mu.Lock()
		defer mu.Unlock()
		return append([]upload(nil), uploads...)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.ErrorContains(t, err, "client")

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = New(client, Config{})
	require.ErrorContains(t, err, "bucket")
}

func TestObjectNameAndURI(t *testing.T) {
	t.Parallel()

	w := &Writer{cfg: Config{Bucket: "guide", Prefix: "public"}}
	assert.Equal(t, "public/asa-berg/index.html", w.ObjectName("asa-berg/index.html"))
	assert.Equal(t, "public/index.html", w.ObjectName("/index.html"))
	assert.Equal(t, "gs://guide/public/", w.URI())

	w = &Writer{cfg: Config{Bucket: "guide"}}
	assert.Equal(t, "styles.css", w.ObjectName("styles.css"))
	assert.Equal(t, "gs://guide/", w.URI())
}

func TestWriteFileUploadsObject(t *testing.T) {
	t.Parallel()

	w, uploads := newTestWriter(t, Config{Bucket: "guide", Prefix: "/public/"}, http.StatusOK)
	require.NoError(t, w.WriteFile(context.Background(), "asa-berg/le-toit.html", []byte("<h1>Le Toit</h1>")))

	got := uploads()
	require.Len(t, got, 1)
	assert.Equal(t, "public/asa-berg/le-toit.html", got[0].name)
	assert.Contains(t, got[0].body, "<h1>Le Toit</h1>")
	assert.Contains(t, got[0].body, "text/html")
}

func TestWriteFileError(t *testing.T) {
	t.Parallel()

	w, _ := newTestWriter(t, Config{Bucket: "guide"}, http.StatusForbidden)
	err := w.WriteFile(context.Background(), "index.html", []byte("x"))
	require.ErrorContains(t, err, "index.html")

	require.ErrorContains(t, w.WriteFile(context.Background(), " ", nil), "path is required")
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Contains(t, contentType("a/index.html"), "text/html")
	assert.Contains(t, contentType("styles.css"), "text/css")
	assert.Equal(t, "application/octet-stream", contentType("README"))
}
