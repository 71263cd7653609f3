package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore keeps values in a YAML map on disk. Every Set rewrites the file
// atomically (temp file + rename).
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// OpenFileStore loads path if it exists; a missing file starts empty.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	if s.data == nil {
		s.data = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key and whether it was set.
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key and rewrites the file. On a write failure the
// in-memory value is rolled back.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// flush writes the map; caller holds s.mu.
func (s *FileStore) flush() error {
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".store-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
