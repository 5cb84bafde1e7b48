package preference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// FileStore keeps preferences of the local user in a TOML file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is the preference file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "pedago-admin", "preferences.toml"), nil
}

// Get returns the value for key, or "" when unset.
func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set writes key, keeping other keys in the file.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preference dir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create preference file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(values); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close preference file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) load() (map[string]string, error) {
	values := map[string]string{}
	if _, err := toml.DecodeFile(s.path, &values); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return values, nil
}

// LoadTheme resolves the theme from the file, falling back to hint.
func (s *FileStore) LoadTheme(hint string) (Theme, string) {
	stored, err := s.Get(ThemeKey)
	if err != nil {
		stored = ""
	}
	return Resolve(stored, hint)
}

// SaveTheme persists t.
func (s *FileStore) SaveTheme(t Theme) error {
	return s.Set(ThemeKey, string(t))
}
