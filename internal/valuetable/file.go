package valuetable

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileStorage persists values as a single JSON object file:
//
//	{"betrayal": {"Version A text...": 0.5}}
//
// Saves write a temp file in the same directory and rename it over the
// target, under an exclusive lock on <path>.lock.
type FileStorage struct {
	path string
	lock *flock.Flock
}

// NewFileStorage returns a JSON file storage at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Location returns the JSON file path.
func (s *FileStorage) Location() string { return s.path }

// Load reads the file. A missing file yields an empty table.
func (s *FileStorage) Load() (Values, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Values{}, nil
		}
		return nil, err
	}
	var v Values
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedState, s.path, err)
	}
	if v == nil {
		v = Values{}
	}
	for q, row := range v {
		if row == nil {
			v[q] = map[string]float64{}
		}
	}
	return v, nil
}

// Save atomically replaces the file with v.
func (s *FileStorage) Save(v Values) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func (s *FileStorage) ensureDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
