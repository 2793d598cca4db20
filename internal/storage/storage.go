// Package storage persists generated audio payloads and returns an
// opaque file reference for the response headers and request log.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes one audio payload under the given name.
type Store interface {
	Store(ctx context.Context, name string, data []byte) (ref string, err error)
}

// FSStore writes audio files to a local directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Store writes the payload and returns the file path.
func (s *FSStore) Store(_ context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return path, nil
}
