// Package id produces identifiers for crawl runs and site builds.
package id

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string IDs.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator creates UUID v7 strings, which sort by creation time.
type UUIDGenerator struct{}

// NewID returns a UUID7 string.
func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Time returns the creation time embedded in a UUID7 string.
func Time(s string) (time.Time, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	if id.Version() != 7 {
		return time.Time{}, fmt.Errorf("parse id %q: version %d has no timestamp", s, id.Version())
	}
	// The leading 48 bits hold Unix milliseconds.
	ms := binary.BigEndian.Uint64(id[:8]) >> 16
	return time.UnixMilli(int64(ms)).UTC(), nil
}
