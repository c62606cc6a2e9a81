package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the area tree as indented JSON. The file is replaced atomically
// so a reader never observes a half-written document.
func Save(path string, areas []Area) error {
	payload, err := json.MarshalIndent(Normalize(areas), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal areas: %w", err)
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".areas-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Load reads an area tree previously written by Save (or by the legacy scraper).
func Load(path string) ([]Area, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var areas []Area
	if err := json.Unmarshal(data, &areas); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return Normalize(areas), nil
}
