package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// Tests here replace the global tracer provider and must not run in parallel.

func TestInitTracerProviderWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.json")
	shutdown, err := InitTracerProvider(context.Background(), "gboc-get", "test", path)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "crawler.page")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "crawler.page")
	assert.Contains(t, string(data), "gboc-get")
}

func TestInitTracerProviderWithoutExport(t *testing.T) {
	shutdown, err := InitTracerProvider(context.Background(), "gboc-get", "test", "")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))
}
