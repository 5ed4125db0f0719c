package secrets

import (
	"context"
	"sync"
)

// MemoryStore is a simple in-memory implementation of Store for tests and demos.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Record
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	if rec.Name == "" {
		return ErrEmptyName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[rec.Name] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.items[name]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, name)
	return nil
}
