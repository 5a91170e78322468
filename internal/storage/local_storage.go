package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFaceStore writes faces as files under a directory.
type LocalFaceStore struct {
	dir string
}

func NewLocalFaceStore(dir string) *LocalFaceStore {
	return &LocalFaceStore{dir: dir}
}

func (s *LocalFaceStore) SaveFace(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create face directory: %w", err)
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write face: %w", err)
	}
	return path, nil
}

// FileSource reads images from the local filesystem. Locations may be plain
// paths or file:// URLs.
type FileSource struct {
	maxBytes int64
}

func NewFileSource() *FileSource {
	return &FileSource{maxBytes: defaultMaxBytes}
}

func (s *FileSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(location, "file://")
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > s.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrImageTooLarge, s.maxBytes)
	}
	return os.ReadFile(path)
}
