package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// FileStore persists state as one JSON file per key under a base directory.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileStore creates a file-backed state store rooted at dir, creating the
// directory when missing.
func NewFileStore(dir string) (*FileStore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("file store: directory is required")
	}
	if err := os.MkdirAll(trimmed, 0o700); err != nil {
		return nil, fmt.Errorf("file store: create directory: %w", err)
	}
	return &FileStore{baseDir: trimmed}, nil
}

// BaseDir returns the directory holding the state files.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

// Get reads the value for key. Missing or unreadable files are a miss.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debugf("state file %s unreadable: %v", filepath.Base(path), err)
		}
		return nil, false
	}
	return data, true
}

// Set writes the value for key atomically via a temp file rename, so a crash
// mid-write never leaves a truncated blob behind.
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file store: replace %s: %w", key, err)
	}
	return nil
}

// Delete removes the value for key. Deleting an absent key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file store: delete %s: %w", key, err)
	}
	return nil
}

// pathFor maps a key to its backing file, rejecting anything that would
// escape the base directory.
func (s *FileStore) pathFor(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.ContainsAny(trimmed, `/\`) || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.baseDir, trimmed+".json"), nil
}
