// Package store persists the single custom-background slot.
//
// The slot has a trivial lifecycle — written when the user uploads a
// background, read once at startup — so the interface is a plain
// key-value slot with substitutable backends: a flat file for the CLI
// and SQLite for the server.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Slot name of the custom background, kept from the original client so
// existing caches stay readable.
const BackgroundKey = "b1690_custom_bg"

// Store is a single-slot persisted value. Load reports ok=false when
// the slot is empty, meaning "use the built-in default background".
type Store interface {
	Load() (value string, ok bool, err error)
	Save(value string) error
	Clear() error
}

// FileStore keeps the slot in one file on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path. Parent directories
// are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath places the slot under the user config directory.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "awardgen", BackgroundKey)
}

func (s *FileStore) Load() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read background slot: %w", err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *FileStore) Save(value string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write background slot: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
