// Package wizard holds the client-side state machines for the multi-step
// flows: booking a wash, onboarding a new user, and one-time-code entry.
// Each wizard keeps its progress in a draft snapshot so an interrupted
// flow resumes where it left off.
package wizard

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrNoDraft is returned by a DraftStore when no snapshot is saved under
// the requested key.
var ErrNoDraft = errors.New("no saved draft")

// DraftStore persists wizard snapshots between runs. Implementations must
// be safe for concurrent use.
type DraftStore interface {
	SaveDraft(key string, value interface{}) error
	LoadDraft(key string, into interface{}) error
	ClearDraft(key string) error
}

// MemoryDrafts is an in-memory DraftStore.
type MemoryDrafts struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryDrafts() *MemoryDrafts {
	return &MemoryDrafts{blobs: make(map[string][]byte)}
}

func (m *MemoryDrafts) SaveDraft(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryDrafts) LoadDraft(key string, into interface{}) error {
	m.mu.Lock()
	data, ok := m.blobs[key]
	m.mu.Unlock()
	if !ok {
		return ErrNoDraft
	}
	return json.Unmarshal(data, into)
}

func (m *MemoryDrafts) ClearDraft(key string) error {
	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()
	return nil
}
