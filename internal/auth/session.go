package auth

import (
	"errors"
	"os"
	"path/filepath"
)

// SessionStore persists the session token between application restarts.
type SessionStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}

var ErrNoSession = errors.New("no persisted session")

// FileSessionStore keeps the token in a mode-0600 file, the client-device
// analogue of a managed provider's persisted session.
type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FileSessionStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", err
	}
	if len(data) == 0 {
		return "", ErrNoSession
	}
	return string(data), nil
}

func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemorySessionStore holds the token in memory only; sessions do not survive
// a restart. Used by tests and by embedders that manage persistence
// themselves.
type MemorySessionStore struct {
	token string
}

func NewMemorySessionStore() *MemorySessionStore { return &MemorySessionStore{} }

func (s *MemorySessionStore) Save(token string) error {
	s.token = token
	return nil
}

func (s *MemorySessionStore) Load() (string, error) {
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

func (s *MemorySessionStore) Clear() error {
	s.token = ""
	return nil
}
