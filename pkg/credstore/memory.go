package credstore

import (
	"context"
	"sync"
)

type memoryEntry struct {
	value     string
	encrypted bool
}

// MemoryStore keeps values in process memory. It is meant for development
// and tests; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Put(_ context.Context, path, value string, encrypted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = memoryEntry{value: value, encrypted: encrypted}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[path]
	if !ok {
		return "", notFound(path)
	}
	return e.value, nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[path]; !ok {
		return notFound(path)
	}
	delete(m.entries, path)
	return nil
}

// Encrypted reports whether path was written with encryption requested.
func (m *MemoryStore) Encrypted(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[path].encrypted
}
