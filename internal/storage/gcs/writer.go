// Package gcs writes site files to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/AdamSzakal/gboc-get/internal/metrics"
)

// Backend labels metrics for this writer.
const Backend = "gcs"

// Config captures the target bucket and an optional object prefix.
type Config struct {
	Bucket string
	Prefix string
	// CacheControl is set on every object; empty leaves the bucket default.
	CacheControl string
}

// Writer uploads files as objects.
type Writer struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed writer.
func New(client *storage.Client, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	metrics.Init()
	return &Writer{client: client, cfg: cfg}, nil
}

// ObjectName maps a site path to its object name.
func (w *Writer) ObjectName(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if w.cfg.Prefix == "" {
		return p
	}
	return w.cfg.Prefix + "/" + p
}

// URI returns the gs:// location of the site root.
func (w *Writer) URI() string {
	if w.cfg.Prefix == "" {
		return fmt.Sprintf("gs://%s/", w.cfg.Bucket)
	}
	return fmt.Sprintf("gs://%s/%s/", w.cfg.Bucket, w.cfg.Prefix)
}

// WriteFile uploads data, replacing any existing object at the same name.
func (w *Writer) WriteFile(ctx context.Context, p string, data []byte) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path is required")
	}
	name := w.ObjectName(p)
	writer := w.client.Bucket(w.cfg.Bucket).Object(name).NewWriter(ctx)
	writer.ContentType = contentType(name)
	if w.cfg.CacheControl != "" {
		writer.CacheControl = w.cfg.CacheControl
	}
	if _, err := writer.Write(data); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", name, err)
	}
	metrics.ObservePageWritten(Backend, len(data))
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
