package client

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// PersistedSession is the client-side record restored across restarts. It is
// never trusted as-is: restoration re-validates against the server first.
type PersistedSession struct {
	Address    string `json:"address"`
	Credential string `json:"credential"`
}

// ErrNoPersistedSession is returned when no session has been saved.
var ErrNoPersistedSession = errors.New("no persisted session")

// CredentialStore persists the session credential across restarts.
type CredentialStore interface {
	Save(session PersistedSession) error
	Load() (PersistedSession, error)
	Clear() error
}

// MemoryCredentialStore keeps the credential in memory; state dies with the
// process.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	session *PersistedSession
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

// Save stores the session.
func (s *MemoryCredentialStore) Save(session PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

// Load returns the stored session.
func (s *MemoryCredentialStore) Load() (PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return PersistedSession{}, ErrNoPersistedSession
	}
	return *s.session, nil
}

// Clear discards the stored session.
func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

// FileCredentialStore persists the credential as JSON on disk, the
// local-storage equivalent for CLI use.
type FileCredentialStore struct {
	path string
	mu   sync.Mutex
}

// NewFileCredentialStore creates a store writing to path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Save stores the session.
func (s *FileCredentialStore) Save(session PersistedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load returns the stored session.
func (s *FileCredentialStore) Load() (PersistedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return PersistedSession{}, ErrNoPersistedSession
		}
		return PersistedSession{}, err
	}

	var session PersistedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return PersistedSession{}, err
	}
	return session, nil
}

// Clear discards the stored session.
func (s *FileCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

var _ CredentialStore = (*FileCredentialStore)(nil)
