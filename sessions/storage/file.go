package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var _ Storage = (*File)(nil)

// File is a Storage persisted as a single JSON object. The file holds
// session credentials, so it is created with 0600 permissions and its
// directory with 0700. All reads are served from memory; every mutation is
// written through to disk under the lock.
type File struct {
	path   string
	values map[string]string
	lock   sync.RWMutex
}

// NewFile loads (or initializes) a file-backed Storage at path. A missing
// file is not an error; an unreadable or corrupt file is, so callers never
// silently lose a session they could have recovered.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[storage.NewFile] create directory: %w", err)
	}

	f := &File{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[storage.NewFile] read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("[storage.NewFile] parse %s: %w", path, err)
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.values[key] = value
	return f.persist()
}

func (f *File) Delete(key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.values, key)
	return f.persist()
}

// persist writes the whole namespace to disk. Caller holds the write lock.
func (f *File) persist() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("[storage.File.persist] marshal: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("[storage.File.persist] write %s: %w", f.path, err)
	}
	return nil
}
