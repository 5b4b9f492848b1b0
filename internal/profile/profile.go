package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Profile is what the client keeps between runs: the session id and the
// user's name.
type Profile struct {
	SessionID string `json:"session_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Repository interface {
	Load() (Profile, error)
	Save(p Profile) error
}

type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	// Touch file if not exists
	f, err := os.OpenFile(path, os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileRepository{path: path}, nil
}

// Load returns the stored profile; an empty or malformed file yields the
// zero Profile.
func (r *FileRepository) Load() (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if err != nil {
		return Profile{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	var p Profile
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		if err == io.EOF {
			return Profile{}, nil
		}
		// malformed -> start fresh
		return Profile{}, nil
	}
	return p, nil
}

func (r *FileRepository) Save(p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open write: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// Memory is an in-process Repository.
type Memory struct {
	mu sync.Mutex
	p  Profile
}

func (m *Memory) Load() (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, nil
}

func (m *Memory) Save(p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = p
	return nil
}
