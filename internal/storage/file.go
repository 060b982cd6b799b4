package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore implements Store on the local filesystem, one file per key.
// Writes go through a temp file and rename so readers never observe a
// partially written value.
type FileStore struct {
	mu       sync.Mutex
	basePath string
}

// NewFileStore creates a file-backed store rooted at basePath
// (created if it doesn't exist).
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStore{basePath: basePath}, nil
}

// Read returns the value under key, or ErrKeyNotFound.
func (s *FileStore) Read(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound(key)
		}
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return data, nil
}

// Write stores value under key.
func (s *FileStore) Write(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit key %q: %w", key, err)
	}

	return nil
}

// Delete removes the key (idempotent).
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}

	return nil
}

// path maps a key to a filename, flattening separators so keys like
// "cart/guest" stay inside basePath.
func (s *FileStore) path(key string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(key)
	return filepath.Join(s.basePath, name)
}
