package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCopiesData(t *testing.T) {
	t.Parallel()

	w := New()
	payload := []byte("content")
	require.NoError(t, w.WriteFile(context.Background(), "area/page.html", payload))
	payload[0] = 'C'

	got, ok := w.File("area/page.html")
	require.True(t, ok)
	assert.Equal(t, "content", string(got))
}

func TestWriteFileReplaces(t *testing.T) {
	t.Parallel()

	w := New()
	ctx := context.Background()
	require.NoError(t, w.WriteFile(ctx, "b.html", []byte("old")))
	require.NoError(t, w.WriteFile(ctx, "b.html", []byte("new!")))
	require.NoError(t, w.WriteFile(ctx, "a.html", []byte("x")))

	assert.Equal(t, []string{"a.html", "b.html"}, w.Paths())
	assert.Equal(t, 5, w.Size())
}

func TestWriteFileCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := New()
	require.ErrorIs(t, w.WriteFile(ctx, "a.html", nil), context.Canceled)
	_, ok := w.File("a.html")
	assert.False(t, ok)
}
