package client

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// ErrNoCredential is returned by a CredentialStore when nothing is saved.
var ErrNoCredential = errors.New("no saved credential")

// CredentialStore persists the access token between runs. Implementations
// must be safe for concurrent use.
type CredentialStore interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}

// MemoryCredentials keeps the token in memory only. Useful for tests and
// for callers that manage persistence themselves.
type MemoryCredentials struct {
	mu    sync.Mutex
	token string
	set   bool
}

func NewMemoryCredentials() *MemoryCredentials { return &MemoryCredentials{} }

func (m *MemoryCredentials) Save(token string) error {
	m.mu.Lock()
	m.token, m.set = token, true
	m.mu.Unlock()
	return nil
}

func (m *MemoryCredentials) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", ErrNoCredential
	}
	return m.token, nil
}

func (m *MemoryCredentials) Clear() error {
	m.mu.Lock()
	m.token, m.set = "", false
	m.mu.Unlock()
	return nil
}

// FileCredentials stores the token as JSON at a fixed path with 0600
// permissions.
type FileCredentials struct {
	mu   sync.Mutex
	path string
}

func NewFileCredentials(path string) *FileCredentials {
	return &FileCredentials{path: path}
}

type credentialFile struct {
	AccessToken string `json:"access_token"`
}

func (f *FileCredentials) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(credentialFile{AccessToken: token})
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileCredentials) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCredential
		}
		return "", err
	}

	var cred credentialFile
	if err := json.Unmarshal(data, &cred); err != nil {
		return "", ErrNoCredential
	}
	if cred.AccessToken == "" {
		return "", ErrNoCredential
	}
	return cred.AccessToken, nil
}

func (f *FileCredentials) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
