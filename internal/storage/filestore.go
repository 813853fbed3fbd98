// Package storage provides a file-backed implementation of the draft store
// contract: one file per key under a profile directory, written atomically
// via temp-file rename so a crash mid-write never corrupts the draft slot.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists key-value pairs as files under a base directory.
// Safe for concurrent use within one process; cross-process coordination is
// not attempted, matching the single-tab ownership model.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the base directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// GetItem reads the value stored under key. A missing file reports ok=false
// without an error.
func (f *FileStore) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem writes the value atomically: the payload lands in a temp file
// first and is renamed over the target, so readers never observe a torn
// write.
func (f *FileStore) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the value stored under key. Removing a missing key is
// not an error.
func (f *FileStore) RemoveItem(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %q: %w", key, err)
	}
	return nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+".json")
}

// sanitizeKey maps arbitrary keys onto safe file names.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
