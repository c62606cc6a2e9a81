// Package memory keeps site files in memory, for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/AdamSzakal/gboc-get/internal/metrics"
)

// Backend labels metrics for this writer.
const Backend = "memory"

// Writer stores files in a map keyed by path.
type Writer struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New creates an empty in-memory writer.
func New() *Writer {
	metrics.Init()
	return &Writer{files: make(map[string][]byte)}
}

// WriteFile stores a copy of data under path, replacing earlier content.
func (w *Writer) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.mu.Lock()
	w.files[path] = slices.Clone(data)
	w.mu.Unlock()
	metrics.ObservePageWritten(Backend, len(data))
	return nil
}

// File returns the content stored under path.
func (w *Writer) File(path string) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	data, ok := w.files[path]
	return data, ok
}

// Paths lists the stored paths in sorted order.
func (w *Writer) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Size is the total number of stored bytes.
func (w *Writer) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, data := range w.files {
		n += len(data)
	}
	return n
}
