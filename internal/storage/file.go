package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes snapshots into a local directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, ErrTargetInvalid
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Target() string { return s.dir }

func (s *FileStore) Verify(ctx context.Context) error {
	st, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTargetInvalid, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrTargetInvalid, s.dir)
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, name string, data []byte) (Object, error) {
	if name == "" || filepath.Base(name) != name {
		return Object{}, fmt.Errorf("invalid object name %q", name)
	}
	p := filepath.Join(s.dir, name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Object{}, fmt.Errorf("%w: %s", ErrExists, name)
		}
		return Object{}, fmt.Errorf("open create: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return Object{}, fmt.Errorf("write: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return Object{}, fmt.Errorf("close: %w", err)
	}
	return Object{ID: p, Name: name}, nil
}
