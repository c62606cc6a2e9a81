// Package local writes site files to the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AdamSzakal/gboc-get/internal/metrics"
)

// Backend labels metrics for this writer.
const Backend = "local"

// Config captures the parameters for the local filesystem writer.
type Config struct {
	// BaseDir is the root directory of the generated site.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Writer writes files below a base directory.
type Writer struct {
	baseDir string
}

// New creates a filesystem writer, creating BaseDir when missing. BaseDir is
// resolved to an absolute path, so "." is a valid root.
func New(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory %s is not a directory", cfg.BaseDir)
	}

	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	metrics.Init()
	return &Writer{baseDir: base}, nil
}

// Dir returns the base directory.
func (w *Writer) Dir() string {
	return w.baseDir
}

// WriteFile writes data to the slash-separated path below the base directory,
// creating parent directories. The file is replaced atomically, so writing the
// same content twice leaves the tree unchanged.
func (w *Writer) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fullPath, err := w.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create parent directories for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".page-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	// #nosec G302 -- site pages are served to browsers.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	metrics.ObservePageWritten(Backend, len(data))
	return nil
}

// resolve maps path below the base directory and rejects traversal.
func (w *Writer) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	fullPath := filepath.Clean(filepath.Join(w.baseDir, filepath.FromSlash(path)))
	if !strings.HasPrefix(fullPath, w.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", path)
	}
	return fullPath, nil
}
