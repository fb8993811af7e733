package apikey

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StorageKey is the fixed field the credential is saved under.
const StorageKey = "openRouterApiKey"

const settingsFile = "settings.json"

// ErrNotFound is returned by Load when nothing has been saved.
var ErrNotFound = errors.New("api key not found")

// Store persists a single credential string. Writes are last-write-wins.
type Store interface {
	Load() (string, error)
	Save(key string) error
	Clear() error
}

// FileStore keeps the credential in a small JSON document readable only by
// the current user.
type FileStore struct {
	Path string
}

// DefaultPath is settings.json under the user config directory.
func DefaultPath(app string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, app, settingsFile), nil
}

// NewFileStore returns a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (string, error) {
	values, err := s.read()
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(values[StorageKey])
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

func (s *FileStore) Save(key string) error {
	values, err := s.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if values == nil {
		values = map[string]string{}
	}
	values[StorageKey] = key
	return s.write(values)
}

func (s *FileStore) Clear() error {
	values, err := s.read()
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	delete(values, StorageKey)
	return s.write(values)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	values := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.Path)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	key string
}

func (m *MemoryStore) Load() (string, error) {
	if m.key == "" {
		return "", ErrNotFound
	}
	return m.key, nil
}

func (m *MemoryStore) Save(key string) error {
	m.key = key
	return nil
}

func (m *MemoryStore) Clear() error {
	m.key = ""
	return nil
}
